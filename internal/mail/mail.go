// Package mail delivers notification emails.
package mail

import (
	"context"
	"log/slog"
)

// Message is one plain-text email to one recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a batch. It returns how many messages went out; err describes the rest.
type Sender interface {
	Send(ctx context.Context, msgs []Message) (sent int, err error)
}

// LogSender only logs. It stands in when SMTP is not configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msgs []Message) (int, error) {
	for _, m := range msgs {
		s.logger.InfoContext(ctx, "mail.logged", "to", m.To, "subject", m.Subject)
	}
	return len(msgs), nil
}
