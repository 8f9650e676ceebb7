package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

type Config struct {
	Host     string
	Port     string
	From     string
	Password string
}

type Mailer struct {
	cfg Config
	log *zerolog.Logger
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

// SendRegistrationConfirmed mails an attendee that their registration
// for the event went through.
func (m *Mailer) SendRegistrationConfirmed(recipientEmail, eventName string) error {
	subject := "You are registered: " + eventName
	body := fmt.Sprintf("Hello!\n\nYour registration for \"%s\" has been recorded. See you there!", eventName)
	return m.send(recipientEmail, subject, body)
}

// SendEventCancelled mails an attendee that the event was cancelled by
// its creator.
func (m *Mailer) SendEventCancelled(recipientEmail, eventName string) error {
	subject := "Event cancelled: " + eventName
	body := fmt.Sprintf("Hello!\n\nUnfortunately \"%s\" has been cancelled by its organizer.", eventName)
	return m.send(recipientEmail, subject, body)
}

func (m *Mailer) send(recipientEmail, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.cfg.From, recipientEmail, subject, body,
	)

	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{recipientEmail}, []byte(msg)); err != nil {
		m.log.Warn().Msgf("failed to send email to %s: %v", recipientEmail, err)
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("email", recipientEmail).Str("subject", subject).Msg("email sent")
	return nil
}
