package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bharatvidya/lms-api/internal/models"
)

// MessageLogRepository handles the append-only outbound message audit trail.
type MessageLogRepository struct {
	db *sqlx.DB
}

// NewMessageLogRepository constructs the repository.
func NewMessageLogRepository(db *sqlx.DB) *MessageLogRepository {
	return &MessageLogRepository{db: db}
}

// Append records one email submission attempt. Logged whenever a message was
// handed to the gateway, independent of delivery outcome.
func (r *MessageLogRepository) Append(ctx context.Context, entry *models.MessageLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()
	query := `INSERT INTO message_logs (id, recipient, subject, message, type, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Recipient, entry.Subject, entry.Message, entry.Type, entry.CreatedAt); err != nil {
		return fmt.Errorf("append message log: %w", err)
	}
	return nil
}

// List returns logged messages, newest first.
func (r *MessageLogRepository) List(ctx context.Context, filter models.MessageLogFilter) ([]models.MessageLog, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Type != nil {
		where = append(where, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, recipient, subject, message, type, created_at
FROM message_logs WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, whereClause, size, offset)
	var logs []models.MessageLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list message logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM message_logs WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count message logs: %w", err)
	}
	return logs, total, nil
}
