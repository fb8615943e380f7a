package matching

import (
	"time"
)

// Gender of an applicant as declared on their registration
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// Group lifecycle statuses
const (
	GroupStatusPending   = "pending"
	GroupStatusCancelled = "cancelled"
)

// SlotEntry is one eligible applicant for a slot, derived fresh from the
// standing registration each run.
type SlotEntry struct {
	UserID   int64  `db:"user_id"`
	Gender   Gender `db:"gender"`
	Age      int    `db:"age"`
	TypeMode string `db:"type_mode"`
	Location string `db:"location"`
}

// HistoryPair records that a man and a woman have previously been grouped
// together. Ids are normalized so Low < High.
type HistoryPair struct {
	Low  int64 `db:"user_id_low"`
	High int64 `db:"user_id_high"`
}

// NewHistoryPair normalizes the id order
func NewHistoryPair(a, b int64) HistoryPair {
	if a > b {
		a, b = b, a
	}
	return HistoryPair{Low: a, High: b}
}

// HistorySet is the full set of previously realized pairings
type HistorySet map[HistoryPair]struct{}

// Contains reports whether the unordered pair (a, b) is in the set
func (h HistorySet) Contains(a, b int64) bool {
	_, ok := h[NewHistoryPair(a, b)]
	return ok
}

// Add inserts the unordered pair (a, b)
func (h HistorySet) Add(a, b int64) {
	h[NewHistoryPair(a, b)] = struct{}{}
}

// Candidate is a scored, unpersisted proposal for a 4-person group.
// TieBreak is the higher age of the two women; among equal scores the
// candidate with a younger "older woman" sorts first.
type Candidate struct {
	Females  [2]int64
	Males    [2]int64
	Score    float64
	TieBreak int
}

// Members returns all 4 user ids
func (c Candidate) Members() [4]int64 {
	return [4]int64{c.Females[0], c.Females[1], c.Males[0], c.Males[1]}
}

// MatchedGroup is a persisted 4-person group for one slot
type MatchedGroup struct {
	ID        int64     `json:"id" db:"id"`
	SlotDT    time.Time `json:"slot_dt" db:"slot_dt"`
	Location  string    `json:"location" db:"location"`
	TypeMode  string    `json:"type_mode" db:"type_mode"`
	Status    string    `json:"status" db:"status"`
	Token     *string   `json:"-" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GroupMember is one of the 4 members of a matched group
type GroupMember struct {
	GroupID int64  `json:"group_id" db:"group_id"`
	UserID  int64  `json:"user_id" db:"user_id"`
	Gender  Gender `json:"gender" db:"gender"`
}

// MemberProfile is the member view exposed on the group page
type MemberProfile struct {
	UserID      int64  `json:"user_id" db:"user_id"`
	DisplayName string `json:"display_name" db:"display_name"`
	Gender      Gender `json:"gender" db:"gender"`
	Age         int    `json:"age" db:"age"`
}

// GroupPage is the public view resolved from an access token
type GroupPage struct {
	Group   MatchedGroup    `json:"group"`
	Members []MemberProfile `json:"members"`
}

// SlotResult summarizes one slot's outcome within a run
type SlotResult struct {
	SlotDT    time.Time `json:"slot_dt"`
	Groups    int       `json:"groups"`
	Matched   int       `json:"matched"`
	Unmatched int       `json:"unmatched"`
	Enqueued  int       `json:"enqueued"`
	Error     string    `json:"error,omitempty"`
}

// RunSummary is the result of one daily orchestrator run
type RunSummary struct {
	RunID   string       `json:"run_id"`
	Date    string       `json:"date"`
	Skipped bool         `json:"skipped,omitempty"` // another run held the lock
	Slots   []SlotResult `json:"slots"`
}
