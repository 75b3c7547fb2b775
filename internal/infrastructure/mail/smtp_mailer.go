package mail

import (
	"context"
	"fmt"
	"io"

	"healthsync-api/config"
	"healthsync-api/internal/service"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
	log    *logrus.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, log *logrus.Logger) service.Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   formatAddress(cfg.FromName, cfg.FromEmail),
		log:    log,
	}
}

func formatAddress(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

func buildMessage(from string, mail service.Mail) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", mail.To)
	m.SetHeader("Subject", mail.Subject)
	m.SetBody("text/html", mail.HTMLBody)

	for _, attachment := range mail.Attachments {
		data := attachment.Data
		m.Attach(attachment.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return m
}

func (s *smtpMailer) Send(ctx context.Context, mail service.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(buildMessage(s.from, mail)); err != nil {
		return fmt.Errorf("send mail to %s: %w", mail.To, err)
	}

	s.log.WithFields(logrus.Fields{
		"to":      mail.To,
		"subject": mail.Subject,
	}).Info("Mail sent")
	return nil
}
