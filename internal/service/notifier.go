package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bharatvidya/lms-api/internal/models"
	"github.com/bharatvidya/lms-api/pkg/mailer"
)

type messageLogAppender interface {
	Append(ctx context.Context, entry *models.MessageLog) error
}

// Notifier submits outbound emails and records every submission attempt in
// the message log. The log row is written whether or not delivery succeeds;
// the send error is still returned so callers can count failures.
type Notifier struct {
	mailer  mailer.Mailer
	logs    messageLogAppender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(m mailer.Mailer, logs messageLogAppender, metrics *MetricsService, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{mailer: m, logs: logs, metrics: metrics, logger: logger}
}

// Submit validates the message, hands it to the mail provider, and appends a
// message log entry for the attempt.
func (n *Notifier) Submit(ctx context.Context, msg mailer.Message, msgType models.MessageType) error {
	if err := mailer.Validate(msg); err != nil {
		return err
	}

	sendErr := n.mailer.Send(ctx, msg)
	n.metrics.RecordMailSubmission(string(msgType), sendErr == nil)
	if sendErr != nil {
		n.logger.Warn("email submission failed",
			zap.String("recipient", msg.To),
			zap.String("type", string(msgType)),
			zap.Error(sendErr))
	}

	entry := &models.MessageLog{
		ID:        uuid.NewString(),
		Recipient: msg.To,
		Subject:   msg.Subject,
		Message:   msg.HTML,
		Type:      msgType,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.logs.Append(ctx, entry); err != nil {
		n.logger.Warn("failed to append message log", zap.Error(err))
	}

	return sendErr
}
