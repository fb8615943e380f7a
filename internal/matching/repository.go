package matching

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	// Read side
	GetSlotTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)
	GetSlotEntries(ctx context.Context, slotDT time.Time) ([]SlotEntry, error)
	GetHistory(ctx context.Context) (HistorySet, error)

	// Write side
	SaveGroups(ctx context.Context, slotDT time.Time, location, typeMode string, groups []Candidate) error
	MarkSlotProcessed(ctx context.Context, slotDT time.Time) error
	AssignTokens(ctx context.Context, slotDT time.Time) ([]MatchedGroup, error)

	// Group page
	GetGroupByToken(ctx context.Context, token string) (*GroupPage, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// GetSlotTimes returns the distinct slot timestamps with active
// registrations in [from, to)
func (r *postgresRepository) GetSlotTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT slot_dt FROM slot_registrations
		WHERE status = 'active' AND slot_dt >= $1 AND slot_dt < $2
		ORDER BY slot_dt`

	var slots []time.Time
	err := r.db.SelectContext(ctx, &slots, query, from, to)
	return slots, err
}

// GetSlotEntries returns the eligible applicants for one slot. Age is
// computed from the birth date at read time.
func (r *postgresRepository) GetSlotEntries(ctx context.Context, slotDT time.Time) ([]SlotEntry, error) {
	query := `
		SELECT sr.user_id,
		       u.gender,
		       EXTRACT(YEAR FROM AGE(u.birth_date))::int AS age,
		       sr.type_mode,
		       sr.location
		FROM slot_registrations sr
		JOIN users u ON sr.user_id = u.id
		WHERE sr.slot_dt = $1 AND sr.status = 'active'
		ORDER BY sr.user_id`

	var entries []SlotEntry
	err := r.db.SelectContext(ctx, &entries, query, slotDT)
	return entries, err
}

// GetHistory loads the full set of previously realized pairings
func (r *postgresRepository) GetHistory(ctx context.Context) (HistorySet, error) {
	query := `SELECT user_id_low, user_id_high FROM match_history`

	var pairs []HistoryPair
	if err := r.db.SelectContext(ctx, &pairs, query); err != nil {
		return nil, err
	}

	history := make(HistorySet, len(pairs))
	for _, p := range pairs {
		history[p] = struct{}{}
	}
	return history, nil
}

// SaveGroups writes the chosen groups, their memberships and the new
// history edges, and marks the slot processed, all in one transaction.
// A reader never observes a partially written group.
func (r *postgresRepository) SaveGroups(ctx context.Context, slotDT time.Time, location, typeMode string, groups []Candidate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	groupQuery := `
		INSERT INTO matched_groups (slot_dt, location, type_mode, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	memberQuery := `
		INSERT INTO matched_group_members (group_id, user_id, gender)
		VALUES ($1, $2, $3)`

	historyQuery := `
		INSERT INTO match_history (user_id_low, user_id_high, slot_dt)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id_low, user_id_high) DO NOTHING`

	for _, g := range groups {
		var groupID int64
		err := tx.QueryRowxContext(ctx, groupQuery, slotDT, location, typeMode, GroupStatusPending).Scan(&groupID)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		for _, f := range g.Females {
			if _, err := tx.ExecContext(ctx, memberQuery, groupID, f, GenderFemale); err != nil {
				return fmt.Errorf("failed to insert member: %w", err)
			}
		}
		for _, m := range g.Males {
			if _, err := tx.ExecContext(ctx, memberQuery, groupID, m, GenderMale); err != nil {
				return fmt.Errorf("failed to insert member: %w", err)
			}
		}

		for _, f := range g.Females {
			for _, m := range g.Males {
				p := NewHistoryPair(f, m)
				if _, err := tx.ExecContext(ctx, historyQuery, p.Low, p.High, slotDT); err != nil {
					return fmt.Errorf("failed to insert history edge: %w", err)
				}
			}
		}
	}

	if err := markSlotProcessed(ctx, tx, slotDT); err != nil {
		return err
	}

	return tx.Commit()
}

// MarkSlotProcessed marks a slot with no persisted groups (zero entries or
// nothing cleared the threshold) so it is not retried indefinitely
func (r *postgresRepository) MarkSlotProcessed(ctx context.Context, slotDT time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := markSlotProcessed(ctx, tx, slotDT); err != nil {
		return err
	}
	return tx.Commit()
}

func markSlotProcessed(ctx context.Context, tx *sqlx.Tx, slotDT time.Time) error {
	query := `
		UPDATE slot_registrations
		SET status = 'processed', processed_at = NOW()
		WHERE slot_dt = $1 AND status = 'active'`

	if _, err := tx.ExecContext(ctx, query, slotDT); err != nil {
		return fmt.Errorf("failed to mark slot processed: %w", err)
	}
	return nil
}

// AssignTokens sets an access token on every group of the slot that still
// lacks one. Each assignment is a single UPDATE guarded by "token IS NULL",
// so it runs in its own implicit transaction: a collision on the unique
// constraint aborts only that statement and the retry gets a clean slate,
// and a concurrent assigner winning the race just makes the UPDATE a no-op.
// Returns all token-bearing groups of the slot.
func (r *postgresRepository) AssignTokens(ctx context.Context, slotDT time.Time) ([]MatchedGroup, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT id FROM matched_groups WHERE slot_dt = $1 AND token IS NULL ORDER BY id`, slotDT)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		groupID := id
		err := assignTokenWithRetry(func(token string) error {
			_, err := r.db.ExecContext(ctx,
				`UPDATE matched_groups SET token = $1 WHERE id = $2 AND token IS NULL`, token, groupID)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to assign token to group %d: %w", groupID, err)
		}
	}

	var groups []MatchedGroup
	err = r.db.SelectContext(ctx, &groups, `
		SELECT id, slot_dt, location, type_mode, status, token, created_at
		FROM matched_groups
		WHERE slot_dt = $1 AND token IS NOT NULL
		ORDER BY id`, slotDT)
	return groups, err
}

const tokenAssignRetries = 5

// assignTokenWithRetry runs update with fresh tokens until one sticks,
// retrying only on a unique-constraint collision.
func assignTokenWithRetry(update func(token string) error) error {
	for i := 0; i < tokenAssignRetries; i++ {
		token, err := GenerateToken()
		if err != nil {
			return err
		}

		err = update(token)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		// generated token already taken, try again
	}
	return fmt.Errorf("gave up after %d token collisions", tokenAssignRetries)
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// GetGroupByToken resolves a token to the group and its members. Expiry is
// applied by the service layer.
func (r *postgresRepository) GetGroupByToken(ctx context.Context, token string) (*GroupPage, error) {
	var group MatchedGroup
	err := r.db.GetContext(ctx, &group, `
		SELECT id, slot_dt, location, type_mode, status, token, created_at
		FROM matched_groups
		WHERE token = $1`, token)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var members []MemberProfile
	err = r.db.SelectContext(ctx, &members, `
		SELECT m.user_id,
		       u.display_name,
		       m.gender,
		       EXTRACT(YEAR FROM AGE(u.birth_date))::int AS age
		FROM matched_group_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.group_id = $1
		ORDER BY m.gender, m.user_id`, group.ID)
	if err != nil {
		return nil, err
	}

	return &GroupPage{Group: group, Members: members}, nil
}
