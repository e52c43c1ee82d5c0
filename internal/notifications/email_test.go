package notifications

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSMTPConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  SMTPConfig
		wantErr string
	}{
		{
			name:   "valid config",
			config: SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"},
		},
		{
			name:    "missing host",
			config:  SMTPConfig{Port: 587, From: "noreply@example.com"},
			wantErr: "smtp host is required",
		},
		{
			name:    "missing port",
			config:  SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"},
			wantErr: "smtp port is required",
		},
		{
			name:    "missing from",
			config:  SMTPConfig{Host: "smtp.example.com", Port: 587},
			wantErr: "smtp from address is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSMTPSender_BuildMessage(t *testing.T) {
	sender, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, err := sender.buildMessage(&Message{
		To:      []string{"user@example.com"},
		Subject: "Test Subject",
		Text:    "Hello",
		HTML:    "<h1>Hello</h1>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgStr := string(msg)
	for _, want := range []string{
		"From: noreply@example.com",
		"To: user@example.com",
		"Subject: Test Subject",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"<h1>Hello</h1>",
	} {
		if !strings.Contains(msgStr, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSMTPSender_ConnectionError(t *testing.T) {
	sender, err := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 19999, From: "noreply@example.com"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = sender.Send(context.Background(), &Message{To: []string{"user@example.com"}, Subject: "s", HTML: "b"})
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestSMTPSender_NoRecipients(t *testing.T) {
	sender, _ := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25, From: "noreply@example.com"}, zerolog.Nop())
	if err := sender.Send(context.Background(), &Message{Subject: "s"}); err == nil {
		t.Fatal("expected error for message without recipients")
	}
}
