package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"oaforum/internal/config"
	"oaforum/internal/logger"

	"gopkg.in/gomail.v2"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

const siteName = "OA Forum"

// CodeMailer 发送一次性验证码邮件
type CodeMailer interface {
	SendVerificationCode(email, code string)
	SendPasswordResetCode(email, code string)
}

type MailService struct {
	cfg     config.SMTPConfig
	log     *logger.Logger
	runner  Runner
	tmpl    *template.Template
	send    func(*gomail.Message) error
	Enabled bool
}

func NewMailService(cfg config.SMTPConfig, log *logger.Logger, runner Runner) (*MailService, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	s := &MailService{
		cfg:     cfg,
		log:     log,
		runner:  runner,
		tmpl:    tmpl,
		Enabled: cfg.Enabled(),
	}
	if !s.Enabled {
		log.Warn("MailService disabled: missing SMTP environment variables")
		return s, nil
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	s.send = func(m *gomail.Message) error {
		return dialer.DialAndSend(m)
	}
	return s, nil
}

func (s *MailService) render(name, code string) (string, error) {
	var buf bytes.Buffer
	err := s.tmpl.ExecuteTemplate(&buf, name, map[string]any{
		"Site":    siteName,
		"Code":    code,
		"Minutes": int(otpTTL.Minutes()),
		"Year":    time.Now().Year(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *MailService) sendAsync(to, subject, body string) {
	if !s.Enabled {
		return
	}
	s.runner.Go("mail "+subject, func(ctx context.Context) error {
		msg := gomail.NewMessage()
		msg.SetAddressHeader("From", s.cfg.From, siteName)
		msg.SetHeader("To", to)
		msg.SetHeader("Subject", subject)
		msg.SetBody("text/html", body)

		if err := s.send(msg); err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		s.log.Info("Email sent", "to", to, "subject", subject)
		return nil
	})
}

func (s *MailService) SendVerificationCode(email, code string) {
	body, err := s.render("verify.html", code)
	if err != nil {
		s.log.Error("Error rendering verification email", "error", err)
		return
	}
	s.sendAsync(email, "Your "+siteName+" verification code", body)
}

func (s *MailService) SendPasswordResetCode(email, code string) {
	body, err := s.render("reset.html", code)
	if err != nil {
		s.log.Error("Error rendering reset email", "error", err)
		return
	}
	s.sendAsync(email, "Reset your "+siteName+" password", body)
}
