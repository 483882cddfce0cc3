package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"time"
)

func (s *Service) sendWithSMTP(data EmailData, htmlContent, textContent string) error {
	msg := buildMIMEMessage(s.cfg.FromName, s.cfg.From, data, htmlContent, textContent)

	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{data.To}, msg); err != nil {
		return fmt.Errorf("sending email via SMTP: %w", err)
	}
	return nil
}

// buildMIMEMessage writes a multipart/alternative message with base64 bodies.
func buildMIMEMessage(fromName, from string, data EmailData, htmlContent, textContent string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", fromName, from)
	fmt.Fprintf(&buf, "To: %s\r\n", data.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", data.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")

	boundary := fmt.Sprintf("_ALT_BOUNDARY_%d", time.Now().UnixNano())
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	buf.WriteString(base64.StdEncoding.EncodeToString([]byte(textContent)))
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "\r\n--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	buf.WriteString(base64.StdEncoding.EncodeToString([]byte(htmlContent)))
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "\r\n--%s--", boundary)
	return buf.Bytes()
}
