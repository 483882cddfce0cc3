package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Email    EmailConfig    `mapstructure:"email"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	AllowedOrigins  string        `mapstructure:"allowed_origins"`
	StaticDir       string        `mapstructure:"static_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Name        string `mapstructure:"name"`
	SSLMode     string `mapstructure:"sslmode"`
	LogLevel    string `mapstructure:"log_level"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type JWTConfig struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
}

type AuthConfig struct {
	AdminSecretKey   string        `mapstructure:"admin_secret_key"`
	ManagerSecretKey string        `mapstructure:"manager_secret_key"`
	OTPTTL           time.Duration `mapstructure:"otp_ttl"`
	GoogleClientID   string        `mapstructure:"google_client_id"`
}

type EmailConfig struct {
	Provider       string `mapstructure:"provider"`
	From           string `mapstructure:"from"`
	FromName       string `mapstructure:"from_name"`
	SendgridAPIKey string `mapstructure:"sendgrid_api_key"`
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SMTPUsername   string `mapstructure:"smtp_username"`
	SMTPPassword   string `mapstructure:"smtp_password"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Output     string `mapstructure:"output"`
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	RotateSize int    `mapstructure:"rotate_size"`
	RotateNum  int    `mapstructure:"rotate_num"`
	KeepDays   int    `mapstructure:"keep_days"`
}

// Load reads configuration from an optional .env file, an optional config
// file and the environment. Environment keys use the section prefix, e.g.
// DATABASE_HOST or JWT_ACCESS_SECRET.
func Load(configFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", "http://localhost:3000")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "task_management")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("jwt.access_secret", "")
	v.SetDefault("jwt.refresh_secret", "")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)

	v.SetDefault("auth.admin_secret_key", "")
	v.SetDefault("auth.manager_secret_key", "")
	v.SetDefault("auth.otp_ttl", 10*time.Minute)
	v.SetDefault("auth.google_client_id", "")

	v.SetDefault("email.provider", "log")
	v.SetDefault("email.from", "no-reply@localhost")
	v.SetDefault("email.from_name", "Task Manager")
	v.SetDefault("email.sendgrid_api_key", "")
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_username", "")
	v.SetDefault("email.smtp_password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.path", "./logs")
	v.SetDefault("log.filename", "server.log")
	v.SetDefault("log.rotate_size", 100)
	v.SetDefault("log.rotate_num", 10)
	v.SetDefault("log.keep_days", 7)
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Email.Provider {
	case "sendgrid":
		if c.Email.SendgridAPIKey == "" {
			return errors.New("email.sendgrid_api_key is required for the sendgrid provider")
		}
	case "smtp":
		if c.Email.SMTPHost == "" {
			return errors.New("email.smtp_host is required for the smtp provider")
		}
	case "log":
	default:
		return fmt.Errorf("unsupported email provider %q", c.Email.Provider)
	}

	if c.IsRelease() {
		if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
			return errors.New("jwt secrets must be set in release mode")
		}
	}
	if c.JWT.AccessSecret == "" {
		c.JWT.AccessSecret = "dev-access-secret-change-me"
	}
	if c.JWT.RefreshSecret == "" {
		c.JWT.RefreshSecret = "dev-refresh-secret-change-me"
	}
	return nil
}

func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}

// Origins splits the comma separated origin list.
func (s ServerConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
