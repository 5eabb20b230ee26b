package mailer

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleMailer writes messages to the log instead of delivering them.
// Used in development when no SendGrid key is configured.
type ConsoleMailer struct {
	logger *zap.Logger
}

var _ Mailer = (*ConsoleMailer)(nil)

// NewConsoleMailer constructs a console mailer.
func NewConsoleMailer(logger *zap.Logger) *ConsoleMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMailer{logger: logger}
}

// Send logs the message and reports success.
func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	if err := Validate(msg); err != nil {
		return err
	}
	m.logger.Info("outbound email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("type", msg.Type),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}
