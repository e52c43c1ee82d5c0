package notifications

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridConfig holds SendGrid API configuration.
type SendGridConfig struct {
	APIKey string `yaml:"api_key" json:"-"`
	From   string `yaml:"from" json:"from"`
	// Host overrides the API host, for tests.
	Host string `yaml:"host" json:"host,omitempty"`
}

// Validate checks if the SendGrid configuration is valid.
func (c *SendGridConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("sendgrid api key is required")
	}
	if c.From == "" {
		return fmt.Errorf("sendgrid from address is required")
	}
	if _, err := mail.ParseAddress(c.From); err != nil {
		return fmt.Errorf("invalid sendgrid from address: %w", err)
	}
	return nil
}

// SendGridSender delivers messages through the SendGrid v3 API.
type SendGridSender struct {
	config SendGridConfig
	from   *sgmail.Email
	logger zerolog.Logger
}

// NewSendGridSender creates a new SendGrid sender.
func NewSendGridSender(config SendGridConfig, logger zerolog.Logger) (*SendGridSender, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sendgrid config: %w", err)
	}
	if config.Host == "" {
		config.Host = sendgridHost
	}
	from, _ := mail.ParseAddress(config.From)
	return &SendGridSender{
		config: config,
		from:   sgmail.NewEmail(from.Name, from.Address),
		logger: logger.With().Str("component", "sendgrid_sender").Logger(),
	}, nil
}

func (s *SendGridSender) prepare(msg *Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	if msg.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	return m
}

// Send delivers msg.
func (s *SendGridSender) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	req := sendgrid.GetRequest(s.config.APIKey, sendgridEndpoint, s.config.Host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
