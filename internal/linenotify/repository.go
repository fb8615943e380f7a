package linenotify

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	EnqueueGroup(ctx context.Context, groupID int64, message string) (int, error)
	ClaimDue(ctx context.Context, limit, maxAttempts int) ([]Notification, error)
	ReleaseStale(ctx context.Context, cutoff time.Time) (int, error)
	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
	MarkFailed(ctx context.Context, id int64, attempts int, nextRetryAt time.Time, lastError string) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// EnqueueGroup inserts one pending notification per group member that has
// a LINE user id. The unique constraint on (group_id, user_id) makes
// repeated invocations no-ops; returns the number of rows actually
// inserted.
func (r *postgresRepository) EnqueueGroup(ctx context.Context, groupID int64, message string) (int, error) {
	query := `
		INSERT INTO line_notifications (group_id, user_id, line_user_id, message_text, status, next_retry_at)
		SELECT m.group_id, m.user_id, u.line_user_id, $2, $3, NOW()
		FROM matched_group_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.group_id = $1
		  AND u.line_user_id IS NOT NULL
		  AND u.line_user_id <> ''
		ON CONFLICT (group_id, user_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, groupID, message, StatusPending)
	if err != nil {
		return 0, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// ClaimDue flips up to limit due records to processing and returns them.
// SKIP LOCKED keeps concurrent dispatcher instances from claiming the same
// record twice. Records at or past maxAttempts are left alone for good.
func (r *postgresRepository) ClaimDue(ctx context.Context, limit, maxAttempts int) ([]Notification, error) {
	query := `
		UPDATE line_notifications
		SET status = $1, claimed_at = NOW()
		WHERE id IN (
			SELECT id FROM line_notifications
			WHERE status IN ($2, $3)
			  AND next_retry_at <= NOW()
			  AND attempts < $4
			ORDER BY next_retry_at
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, group_id, user_id, line_user_id, message_text, status,
		          attempts, next_retry_at, claimed_at, last_error, sent_at, created_at`

	var claimed []Notification
	err := r.db.SelectContext(ctx, &claimed, query,
		StatusProcessing, StatusPending, StatusFailed, maxAttempts, limit)
	return claimed, err
}

// ReleaseStale returns processing records claimed before cutoff to the
// retry pool. A dispatcher that dies after claiming leaves its batch in
// processing; without this sweep those records would never be claimed
// again. Attempts are left untouched: the outcome of the interrupted
// delivery is unknown.
func (r *postgresRepository) ReleaseStale(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE line_notifications
		SET status = $1, next_retry_at = NOW()
		WHERE status = $2
		  AND (claimed_at IS NULL OR claimed_at <= $3)`

	res, err := r.db.ExecContext(ctx, query, StatusFailed, StatusProcessing, cutoff)
	if err != nil {
		return 0, err
	}

	released, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(released), nil
}

// MarkSent finalizes a delivered record
func (r *postgresRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	query := `
		UPDATE line_notifications
		SET status = $2, sent_at = $3, last_error = NULL
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, StatusSent, sentAt)
	return err
}

// MarkFailed records a failed attempt with its retry bookkeeping
func (r *postgresRepository) MarkFailed(ctx context.Context, id int64, attempts int, nextRetryAt time.Time, lastError string) error {
	query := `
		UPDATE line_notifications
		SET status = $2, attempts = $3, next_retry_at = $4, last_error = $5
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, StatusFailed, attempts, nextRetryAt, lastError)
	return err
}
