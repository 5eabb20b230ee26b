package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bharatvidya/lms-api/internal/models"
	"github.com/bharatvidya/lms-api/pkg/mailer"
)

type fakeMailer struct {
	sent    []mailer.Message
	failFor map[string]bool
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	if f.failFor[msg.To] {
		return errors.New("provider rejected message")
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeLogStore struct {
	entries []models.MessageLog
}

func (f *fakeLogStore) Append(ctx context.Context, entry *models.MessageLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func TestNotifierLogsEveryAttempt(t *testing.T) {
	mail := &fakeMailer{failFor: map[string]bool{"down@example.com": true}}
	logs := &fakeLogStore{}
	n := NewNotifier(mail, logs, nil, zap.NewNop())

	err := n.Submit(context.Background(), mailer.Message{
		To: "ok@example.com", Subject: "Hello", HTML: "<p>Hi</p>",
	}, models.MessageTypeTransactional)
	require.NoError(t, err)

	err = n.Submit(context.Background(), mailer.Message{
		To: "down@example.com", Subject: "Hello", HTML: "<p>Hi</p>",
	}, models.MessageTypeTransactional)
	require.Error(t, err)

	// both attempts are in the audit trail, delivered or not
	require.Len(t, logs.entries, 2)
	assert.Equal(t, "ok@example.com", logs.entries[0].Recipient)
	assert.Equal(t, "down@example.com", logs.entries[1].Recipient)
	assert.Len(t, mail.sent, 1)
}

func TestNotifierRejectsMissingFields(t *testing.T) {
	mail := &fakeMailer{}
	logs := &fakeLogStore{}
	n := NewNotifier(mail, logs, nil, zap.NewNop())

	err := n.Submit(context.Background(), mailer.Message{To: "a@b.com"}, models.MessageTypeTransactional)
	require.Error(t, err)
	assert.Empty(t, mail.sent)
	assert.Empty(t, logs.entries)
}
