package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/yukikurage/team-task-api/internal/config"
	"go.uber.org/zap"
)

//go:embed templates
var templateFS embed.FS

// Provider identifies supported email providers
type Provider string

const (
	ProviderSMTP     Provider = "smtp"
	ProviderSendgrid Provider = "sendgrid"
	// ProviderLog writes messages to the application log instead of sending them.
	ProviderLog Provider = "log"

	templateRoot = "templates"
	templateOTP  = "otp"
)

// EmailData contains all necessary information for sending an email
type EmailData struct {
	To           string
	Subject      string
	TemplateName string
	TemplateData any
}

type Template struct {
	HTML      *htmltemplate.Template
	Plaintext *texttemplate.Template
}

// Service renders templates and hands them to the configured provider.
type Service struct {
	cfg            config.EmailConfig
	provider       Provider
	sendgridClient *sendgrid.Client
	templates      map[string]*Template
	log            *zap.Logger
	otpTTL         time.Duration
}

func NewService(cfg config.EmailConfig, otpTTL time.Duration, log *zap.Logger) (*Service, error) {
	s := &Service{
		cfg:       cfg,
		provider:  Provider(cfg.Provider),
		templates: make(map[string]*Template),
		log:       log,
		otpTTL:    otpTTL,
	}

	switch s.provider {
	case ProviderSendgrid:
		s.sendgridClient = sendgrid.NewSendClient(cfg.SendgridAPIKey)
	case ProviderSMTP, ProviderLog:
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}

	if err := s.loadTemplates(); err != nil {
		return nil, fmt.Errorf("loading email templates: %w", err)
	}
	return s, nil
}

// loadTemplates parses every templates/<name>/{html,plaintext}.tmpl pair.
func (s *Service) loadTemplates() error {
	groups, err := templateFS.ReadDir(templateRoot)
	if err != nil {
		return fmt.Errorf("failed to read email templates directory: %w", err)
	}

	for _, group := range groups {
		if !group.IsDir() {
			continue
		}
		base := templateRoot + "/" + group.Name()

		html, err := htmltemplate.ParseFS(templateFS, base+"/html.tmpl")
		if err != nil {
			return fmt.Errorf("parse %s html template: %w", group.Name(), err)
		}
		text, err := texttemplate.ParseFS(templateFS, base+"/plaintext.tmpl")
		if err != nil {
			return fmt.Errorf("parse %s plaintext template: %w", group.Name(), err)
		}
		s.templates[group.Name()] = &Template{HTML: html, Plaintext: text}
	}

	if len(s.templates) == 0 {
		return fmt.Errorf("no email templates found")
	}
	return nil
}

// SendOTP delivers a verification code. It blocks until the provider has
// accepted the message.
func (s *Service) SendOTP(ctx context.Context, to, code string) error {
	return s.SendEmail(ctx, EmailData{
		To:           to,
		Subject:      "Your verification code",
		TemplateName: templateOTP,
		TemplateData: map[string]any{
			"Code":             code,
			"ExpiresInMinutes": int(s.otpTTL.Minutes()),
		},
	})
}

// SendEmail sends an email using the configured provider
func (s *Service) SendEmail(ctx context.Context, data EmailData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	htmlContent, textContent, err := s.render(data.TemplateName, data.TemplateData)
	if err != nil {
		return err
	}

	switch s.provider {
	case ProviderSendgrid:
		return s.sendWithSendgrid(ctx, data, htmlContent, textContent)
	case ProviderSMTP:
		return s.sendWithSMTP(data, htmlContent, textContent)
	default:
		s.log.Info("email delivery skipped (log provider)",
			zap.String("to", data.To),
			zap.String("subject", data.Subject),
			zap.String("body", textContent),
		)
		return nil
	}
}

func (s *Service) render(name string, data any) (string, string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", "", fmt.Errorf("template %s not found", name)
	}

	var htmlBuf bytes.Buffer
	if err := tmpl.HTML.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute html template: %w", err)
	}

	var textBuf bytes.Buffer
	if err := tmpl.Plaintext.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute plaintext template: %w", err)
	}

	return htmlBuf.String(), textBuf.String(), nil
}
