package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/metrics"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
)

type EmailService struct {
	cfg *config.SMTPConfig
}

func NewEmailService(cfg *config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// RegisterEmailTaskHandler wires SMTP delivery into the task queue
func RegisterEmailTaskHandler(cfg *config.SMTPConfig) {
	svc := NewEmailService(cfg)
	RegisterTaskHandler(TaskTypeEmail, func(ctx context.Context, payload []byte) error {
		var task EmailTask
		if err := json.Unmarshal(payload, &task); err != nil {
			return fmt.Errorf("decode email task: %w", err)
		}
		err := svc.Send([]string{task.To}, task.Subject, task.Body)
		metrics.IncNotification("email", err)
		return err
	})
}

func (s *EmailService) Enabled() bool {
	return s.cfg != nil && s.cfg.Enabled && s.cfg.Host != ""
}

// Enqueue schedules an email through the task queue
func (s *EmailService) Enqueue(to, subject, body string) error {
	if !s.Enabled() || to == "" {
		return nil
	}
	return GetTaskQueue().Enqueue(TaskTypeEmail, EmailTask{To: to, Subject: subject, Body: body})
}

// BuildNotificationEmail renders the email copy of an in-app notification
func BuildNotificationEmail(n *models.Notification, recipientName string) (string, string) {
	subject := fmt.Sprintf("[FreelanceHub] %s", n.Title)

	var sb strings.Builder
	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	if recipientName != "" {
		sb.WriteString(fmt.Sprintf("<p>Hi %s,</p>", html.EscapeString(recipientName)))
	}
	sb.WriteString(fmt.Sprintf("<h2>%s</h2>", html.EscapeString(n.Title)))
	if n.Body != "" {
		sb.WriteString(fmt.Sprintf("<div style=\"background: #f9f9f9; padding: 16px; border-radius: 4px; white-space: pre-wrap;\">%s</div>", html.EscapeString(n.Body)))
	}
	if n.Link != "" {
		sb.WriteString(fmt.Sprintf("<p><a href=\"%s\">Open in FreelanceHub</a></p>", html.EscapeString(n.Link)))
	}
	sb.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">You receive this email because of your notification settings on FreelanceHub.</p>")
	sb.WriteString("</body></html>")

	return subject, sb.String()
}

func (s *EmailService) from() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.Username
}

func buildMIMEMessage(from string, to []string, subject, body string) string {
	headers := [][2]string{
		{"From", from},
		{"To", strings.Join(to, ",")},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	message.WriteString("\r\n")
	message.WriteString(body)
	return message.String()
}

// Send delivers an HTML email synchronously
func (s *EmailService) Send(to []string, subject, body string) error {
	if !s.Enabled() || len(to) == 0 {
		return nil
	}

	from := s.from()
	message := buildMIMEMessage(from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	var err error
	if s.cfg.UseTLS {
		err = s.sendTLS(addr, auth, from, to, message)
	} else {
		err = smtp.SendMail(addr, auth, from, to, []byte(message))
	}

	if err != nil {
		logger.Errorf("[Email] Failed to send email: %v", err)
		return err
	}

	logger.Infof("[Email] Sent %q to %d recipient(s)", subject, len(to))
	return nil
}

func (s *EmailService) sendTLS(addr string, auth smtp.Auth, from string, to []string, message string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(message)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
