// Package mailing sends the transactional mails of the service, a
// noop mode is available for local development and tests.
package mailing

import (
	"embed"
	"fmt"
	"strings"
	"time"

	"html/template"

	"github.com/go-mail/mail"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/sanitize"
	"go.uber.org/zap"
)

//go:embed templates
var templates embed.FS

type Mailer struct {
	noop          bool
	client        *mail.Dialer
	log           *zap.Logger
	cfg           *config.Configuration
	emailTemplate *template.Template
}

func (m *Mailer) baseModel(title string, message string) map[string]interface{} {
	b := make(map[string]interface{})
	b["service_name"] = m.cfg.Behaviour.Name
	b["date"] = time.Now().Format("2006-01-02 15:04")
	b["site"] = m.cfg.Behaviour.Site
	b["title"] = title
	b["message"] = message
	return b
}

// SendVerificationMail delivers the email verification link after
// signup or on re-request
func (m *Mailer) SendVerificationMail(email string, token string) error {
	if m.noop {
		m.log.Info("skipping email `Verification` because noop is configured",
			sanitize.UserInputString("email", email))
		return nil
	}
	base := m.baseModel(
		"Verify your email address",
		"Follow the link below to verify your email address and activate your account.",
	)
	base["link_text"] = "Verify email"
	base["link"] = fmt.Sprintf(
		"%s/auth/verify-email/%s",
		m.cfg.Behaviour.ServiceDomain,
		token,
	)
	base["token_text"] = "Or paste this token"
	base["token"] = token
	subject := fmt.Sprintf("Verify your email for %s", m.cfg.Behaviour.Name)
	base["subject"] = subject
	return m.send(email, subject, base)
}

// SendPasswordResetMail delivers the password reset link
func (m *Mailer) SendPasswordResetMail(email string, token string) error {
	if m.noop {
		m.log.Info("skipping email `PasswordReset` because noop is configured",
			sanitize.UserInputString("email", email))
		return nil
	}
	base := m.baseModel(
		"Reset your password",
		"Someone requested a password reset for your account. If this was you, follow the link below. The link expires in an hour.",
	)
	base["link_text"] = "Reset password"
	base["link"] = fmt.Sprintf(
		"%s/auth/reset-password?token=%s",
		m.cfg.Behaviour.ServiceDomain,
		token,
	)
	base["token_text"] = "Or paste this token"
	base["token"] = token
	subject := fmt.Sprintf("Password reset for %s", m.cfg.Behaviour.Name)
	base["subject"] = subject
	return m.send(email, subject, base)
}

// SendPasswordChangedMail notifies the account owner after a password
// change went through
func (m *Mailer) SendPasswordChangedMail(email string) error {
	if m.noop {
		m.log.Info("skipping email `PasswordChanged` because noop is configured",
			sanitize.UserInputString("email", email))
		return nil
	}
	base := m.baseModel(
		"Your password was changed",
		"The password of your account was just changed. If this was not you, reset your password immediately.",
	)
	subject := fmt.Sprintf("Password changed on %s", m.cfg.Behaviour.Name)
	base["subject"] = subject
	return m.send(email, subject, base)
}

func (m *Mailer) send(email string, subject string, viewModel map[string]interface{}) error {
	buffer := new(strings.Builder)
	err := m.emailTemplate.Execute(buffer, viewModel)
	if err != nil {
		return err
	}
	msg := mail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.SMTP.Address, m.cfg.SMTP.DisplayName)
	msg.SetAddressHeader("To", email, "")
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", buffer.String())
	return m.client.DialAndSend(msg)
}

func NewMailer(
	log *zap.Logger,
	cfg *config.Configuration,
) (*Mailer, error) {
	t, err := template.ParseFS(templates, "templates/email.html")
	if err != nil {
		return nil, err
	}
	s := &Mailer{
		noop:          !cfg.SMTP.Enabled,
		log:           log,
		emailTemplate: t,
		cfg:           cfg,
	}
	if !s.noop {
		s.client = mail.NewDialer(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Username,
			cfg.SMTP.Password,
		)
	}
	return s, nil
}
