// internal/common/database/migrations.go
// In-code schema migrations executed at startup

package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Migrate creates the schema if it does not exist yet. Statements are
// idempotent so repeated startups are safe.
func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Users table: read-side source for slot entries. Profile CRUD
		// lives in a separate service; only the columns the matcher needs.
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			display_name VARCHAR(100) NOT NULL,
			gender VARCHAR(10) NOT NULL,
			birth_date DATE NOT NULL,
			line_user_id TEXT,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		// Slot registrations: one row per applicant per slot
		`CREATE TABLE IF NOT EXISTS slot_registrations (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			slot_dt TIMESTAMPTZ NOT NULL,
			location VARCHAR(100) NOT NULL,
			type_mode VARCHAR(50) NOT NULL,
			status VARCHAR(20) DEFAULT 'active',
			processed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_slot_registration UNIQUE(user_id, slot_dt)
		)`,

		// Matched groups: one row per chosen 4-person group
		`CREATE TABLE IF NOT EXISTS matched_groups (
			id BIGSERIAL PRIMARY KEY,
			slot_dt TIMESTAMPTZ NOT NULL,
			location VARCHAR(100) NOT NULL,
			type_mode VARCHAR(50) NOT NULL,
			status VARCHAR(20) DEFAULT 'pending',
			token TEXT UNIQUE,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS matched_group_members (
			group_id BIGINT NOT NULL REFERENCES matched_groups(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			gender VARCHAR(10) NOT NULL,
			PRIMARY KEY (group_id, user_id)
		)`,

		// Match history: unordered pair, ids normalized so low < high
		`CREATE TABLE IF NOT EXISTS match_history (
			user_id_low BIGINT NOT NULL,
			user_id_high BIGINT NOT NULL,
			slot_dt TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id_low, user_id_high)
		)`,

		// Outbound LINE notification queue
		`CREATE TABLE IF NOT EXISTS line_notifications (
			id BIGSERIAL PRIMARY KEY,
			group_id BIGINT NOT NULL REFERENCES matched_groups(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			line_user_id TEXT NOT NULL,
			message_text TEXT NOT NULL,
			status VARCHAR(20) DEFAULT 'pending',
			attempts INTEGER DEFAULT 0,
			next_retry_at TIMESTAMPTZ NOT NULL,
			claimed_at TIMESTAMPTZ,
			last_error TEXT,
			sent_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_group_notification UNIQUE(group_id, user_id)
		)`,

		// Column additions for databases created before the column existed
		`ALTER TABLE line_notifications ADD COLUMN IF NOT EXISTS claimed_at TIMESTAMPTZ`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_slot_registrations_slot_dt ON slot_registrations(slot_dt) WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS idx_matched_groups_slot_dt ON matched_groups(slot_dt)`,
		`CREATE INDEX IF NOT EXISTS idx_line_notifications_due ON line_notifications(next_retry_at) WHERE status IN ('pending', 'failed')`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
		}
	}

	return nil
}
