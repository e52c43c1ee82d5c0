// Package notifications renders and delivers credential e-mails.
package notifications

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/rs/zerolog"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Mailer renders named templates for a user and hands them to a Sender.
type Mailer struct {
	templates    *Templates
	sender       Sender
	platformName string
	logger       zerolog.Logger
}

// NewMailer creates a Mailer. platformName is available to templates as
// platform_name.
func NewMailer(sender Sender, platformName string, logger zerolog.Logger) (*Mailer, error) {
	tmpl, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	return &Mailer{
		templates:    tmpl,
		sender:       sender,
		platformName: platformName,
		logger:       logger.With().Str("component", "mailer").Logger(),
	}, nil
}

// SendTemplate renders template name for the user and sends it. The user's
// full name, username and the platform name are added to data.
func (m *Mailer) SendTemplate(ctx context.Context, name string, to *models.User, data map[string]string) error {
	if to.Email == "" {
		return fmt.Errorf("user %d has no e-mail address", to.ID)
	}

	values := make(map[string]string, len(data)+3)
	values["full_name"] = to.FullName()
	if values["full_name"] == "" {
		values["full_name"] = to.Username
	}
	values["username"] = to.Username
	values["platform_name"] = m.platformName
	for k, v := range data {
		values[k] = v
	}

	msg, err := m.templates.Render(name, values)
	if err != nil {
		return err
	}
	msg.To = []string{to.Email}

	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.Error().Err(err).Str("template", name).Int64("user_id", to.ID).Msg("failed to send email")
		return err
	}

	m.logger.Info().Str("template", name).Int64("user_id", to.ID).Msg("email sent")
	return nil
}

// LogSender logs messages instead of delivering them.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "log_sender").Logger()}
}

// Send logs msg.
func (s *LogSender) Send(_ context.Context, msg *Message) error {
	s.logger.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("email not delivered: no email backend configured")
	return nil
}
