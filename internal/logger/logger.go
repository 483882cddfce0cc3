package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yukikurage/team-task-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. Debug mode uses a console encoder, any
// other mode writes JSON.
func New(cfg config.LogConfig, debug bool) (*zap.Logger, error) {
	var writer zapcore.WriteSyncer
	switch cfg.Output {
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("log path is required when output is 'file'")
		}
		writer = fileWriter(cfg)
	default:
		writer = zapcore.AddSync(os.Stdout)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if debug {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, writer, parseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller()), nil
}

func fileWriter(cfg config.LogConfig) zapcore.WriteSyncer {
	name := cfg.Filename
	if name == "" {
		name = "server.log"
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(cfg.Path, name),
		MaxSize:    cfg.RotateSize,
		MaxBackups: cfg.RotateNum,
		MaxAge:     cfg.KeepDays,
		Compress:   true,
	})
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
