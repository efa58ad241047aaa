package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"devcollab/platform-backend/pkg/apperr"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error
	UnreadBacklog(ctx context.Context, staleBefore time.Time) (Backlog, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, title, message, kind, data, is_read, created_at)
		VALUES (:id, :user_id, :title, :message, :kind, :data, :is_read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *postgresRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE", userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// ListRecent returns at most limit notifications, newest first.
func (r *postgresRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	items := []Notification{}
	query := `
		SELECT id, user_id, title, message, kind, data, is_read, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &items, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// MarkRead flags a notification owned by userID as read. Marking twice keeps the
// first read time.
func (r *postgresRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2`, id, userID, at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

// UnreadBacklog counts unread notifications, those created before staleBefore,
// and the users holding them.
func (r *postgresRepository) UnreadBacklog(ctx context.Context, staleBefore time.Time) (Backlog, error) {
	var backlog Backlog
	query := `
		SELECT COUNT(*) AS unread,
		       COUNT(*) FILTER (WHERE created_at < $1) AS stale,
		       COUNT(DISTINCT user_id) AS users
		FROM notifications
		WHERE is_read = FALSE`
	if err := r.db.GetContext(ctx, &backlog, query, staleBefore); err != nil {
		return Backlog{}, fmt.Errorf("measure notification backlog: %w", err)
	}
	return backlog, nil
}
