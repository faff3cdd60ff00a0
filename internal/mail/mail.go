// Package mail sends the account emails the API triggers.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/SreeragSreekanth/Blogplatform/internal/config"
	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
)

// Sender delivers account emails.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, username, link string) error
}

var resetTemplate = template.Must(template.New("reset").Parse(`Hello {{.Username}},

Someone asked to reset the password of your account.
Open the link below to choose a new password:

{{.Link}}

If you did not ask for this, you can ignore this email.
`))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends plain-text mail through an SMTP relay.
type SMTPSender struct {
	host string
	port string
	user string
	pass string
	from string
	send sendFunc
}

// NewSender returns an SMTP sender when SMTP settings are complete and a
// LogSender otherwise.
func NewSender(cfg *config.Config) Sender {
	if cfg == nil || !cfg.MailEnabled() {
		middleware.Logger.Warn("SMTP settings incomplete, emails will be logged instead of sent")
		return LogSender{}
	}
	return &SMTPSender{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
		send: smtp.SendMail,
	}
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, username, link string) error {
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, map[string]string{"Username": username, "Link": link}); err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}
	msg := buildMessage(s.from, to, "Password reset request", body.String())

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}
	if err := s.send(s.host+":"+s.port, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "password reset email sent", slog.String("to", to))
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes emails to the log. Used in development and tests.
type LogSender struct{}

func (LogSender) SendPasswordReset(ctx context.Context, to, username, link string) error {
	middleware.Logger.InfoContext(ctx, "password reset email (not sent)",
		slog.String("to", to),
		slog.String("username", username),
		slog.String("link", link),
	)
	return nil
}
