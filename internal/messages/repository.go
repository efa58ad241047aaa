package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"devcollab/platform-backend/pkg/apperr"
)

type Repository interface {
	GetProject(ctx context.Context, projectID uuid.UUID) (*ProjectRef, error)
	HasApplied(ctx context.Context, projectID, developerID uuid.UUID) (bool, error)
	Create(ctx context.Context, m *Message) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetProject(ctx context.Context, projectID uuid.UUID) (*ProjectRef, error) {
	var ref ProjectRef
	err := r.db.GetContext(ctx, &ref, "SELECT id, owner_id, title FROM projects WHERE id = $1", projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("project not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	return &ref, nil
}

func (r *postgresRepository) HasApplied(ctx context.Context, projectID, developerID uuid.UUID) (bool, error) {
	var applied bool
	err := r.db.GetContext(ctx, &applied,
		"SELECT EXISTS (SELECT 1 FROM applications WHERE project_id = $1 AND developer_id = $2)",
		projectID, developerID)
	if err != nil {
		return false, fmt.Errorf("check application: %w", err)
	}
	return applied, nil
}

func (r *postgresRepository) Create(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO messages (id, project_id, sender_id, recipient_id, content, is_read, sent_at)
		VALUES (:id, :project_id, :sender_id, :recipient_id, :content, :is_read, :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListForUser returns at most limit messages sent or received by userID, newest first.
func (r *postgresRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error) {
	items := []Message{}
	query := `
		SELECT id, project_id, sender_id, recipient_id, content, is_read, sent_at
		FROM messages
		WHERE sender_id = $1 OR recipient_id = $1
		ORDER BY sent_at DESC
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &items, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return items, nil
}

func (r *postgresRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND is_read = FALSE", userID)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

// MarkRead flags a message addressed to recipientID as read.
func (r *postgresRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE messages SET is_read = TRUE WHERE id = $1 AND recipient_id = $2", id, recipientID)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("message not found")
	}
	return nil
}
