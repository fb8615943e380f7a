package matching

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/quartet-app/quartet-backend/internal/linenotify"
)

var (
	ErrSlotInconsistent = errors.New("slot entries disagree on location or activity type")
	ErrGroupNotFound    = errors.New("group not found or expired")
)

type Service interface {
	// RunDaily processes every slot scheduled on the given date. It
	// never fails the whole run on a per-slot error; the summary lists
	// one entry per slot with either counts or an error string.
	RunDaily(ctx context.Context, date time.Time) (*RunSummary, error)

	// ProcessSlot runs selection, persistence, token assignment and
	// notification enqueueing for one slot against the given history.
	ProcessSlot(ctx context.Context, slotDT time.Time, history HistorySet) SlotResult

	// ResolveGroupPage resolves a group access token to the shared page,
	// honoring the token's expiry.
	ResolveGroupPage(ctx context.Context, token string) (*GroupPage, error)
}

// Options carries the tunables the service needs from config
type Options struct {
	ScoreThreshold float64
	BaseURL        string
	Location       *time.Location
	// DispatchAfterRun triggers a best-effort dispatcher pass at the end
	// of each daily run
	DispatchAfterRun bool
}

type service struct {
	repo     Repository
	notifier linenotify.Service
	locker   RunLocker
	opts     Options
}

func NewService(repo Repository, notifier linenotify.Service, locker RunLocker, opts Options) Service {
	if opts.ScoreThreshold == 0 {
		opts.ScoreThreshold = DefaultScoreThreshold
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &service{
		repo:     repo,
		notifier: notifier,
		locker:   locker,
		opts:     opts,
	}
}

func (s *service) RunDaily(ctx context.Context, date time.Time) (*RunSummary, error) {
	runID := uuid.New().String()
	day := date.In(s.opts.Location)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.opts.Location)
	to := from.AddDate(0, 0, 1)

	summary := &RunSummary{
		RunID: runID,
		Date:  from.Format("2006-01-02"),
	}

	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx, runLockKey(from), runLockTTL)
		if err != nil {
			log.Printf("[run %s] run lock unavailable, continuing without it: %v", runID, err)
		} else if !acquired {
			log.Printf("[run %s] another run holds the lock for %s, skipping", runID, summary.Date)
			summary.Skipped = true
			return summary, nil
		} else {
			defer s.locker.Unlock(context.Background(), runLockKey(from))
		}
	}

	slots, err := s.repo.GetSlotTimes(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots for %s: %w", summary.Date, err)
	}

	history, err := s.repo.GetHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load match history: %w", err)
	}

	log.Printf("[run %s] processing %d slots for %s", runID, len(slots), summary.Date)

	for _, slotDT := range slots {
		res := s.ProcessSlot(ctx, slotDT, history)
		if res.Error != "" {
			log.Printf("[run %s] slot %s: %s", runID, slotDT.Format(time.RFC3339), res.Error)
		}
		summary.Slots = append(summary.Slots, res)
	}

	if s.opts.DispatchAfterRun && s.notifier != nil {
		if stats, err := s.notifier.ProcessDue(ctx); err != nil {
			log.Printf("[run %s] post-run dispatch failed: %v", runID, err)
		} else if stats.Claimed > 0 {
			log.Printf("[run %s] post-run dispatch: claimed=%d sent=%d failed=%d",
				runID, stats.Claimed, stats.Sent, stats.Failed)
		}
	}

	return summary, nil
}

func (s *service) ProcessSlot(ctx context.Context, slotDT time.Time, history HistorySet) SlotResult {
	res := SlotResult{SlotDT: slotDT}

	entries, err := s.repo.GetSlotEntries(ctx, slotDT)
	if err != nil {
		res.Error = fmt.Sprintf("failed to load entries: %v", err)
		RecordSlotProcessed("error")
		return res
	}

	if len(entries) == 0 {
		// already processed, or nobody registered; mark so the slot is
		// not retried forever
		if err := s.repo.MarkSlotProcessed(ctx, slotDT); err != nil {
			res.Error = fmt.Sprintf("failed to mark empty slot processed: %v", err)
			RecordSlotProcessed("error")
			return res
		}
		// an earlier attempt may have persisted groups and then failed
		// before tokens or notifications went out; settle them now
		s.settleGroups(ctx, slotDT, &res)
		if res.Error != "" {
			RecordSlotProcessed("error")
			return res
		}
		RecordSlotProcessed("empty")
		return res
	}

	location, typeMode, err := slotAttributes(entries)
	if err != nil {
		// upstream data inconsistency: skip without modification so a
		// later fix lets the slot run again
		res.Error = err.Error()
		RecordSlotProcessed("inconsistent")
		return res
	}

	groups, unmatched := SelectGroups(entries, history, s.opts.ScoreThreshold)
	res.Groups = len(groups)
	res.Matched = len(groups) * 4
	res.Unmatched = len(unmatched)

	for _, g := range groups {
		ObserveGroupScore(g.Score)
	}

	if err := s.repo.SaveGroups(ctx, slotDT, location, typeMode, groups); err != nil {
		res.Error = fmt.Sprintf("failed to persist groups: %v", err)
		RecordSlotProcessed("error")
		return res
	}

	// later slots in the same run must not rematch pairs created here
	for _, g := range groups {
		for _, f := range g.Females {
			for _, m := range g.Males {
				history.Add(f, m)
			}
		}
	}

	RecordGroupsFormed(len(groups))
	RecordMembers(res.Matched, res.Unmatched)

	if len(groups) == 0 {
		RecordSlotProcessed("no_match")
		return res
	}

	s.settleGroups(ctx, slotDT, &res)
	if res.Error != "" {
		RecordSlotProcessed("error")
		return res
	}

	RecordSlotProcessed("ok")
	return res
}

// settleGroups assigns tokens to any of the slot's groups still lacking one
// and enqueues their notifications. Both steps are idempotent, so a rerun
// of a slot whose earlier run failed partway completes the remainder.
func (s *service) settleGroups(ctx context.Context, slotDT time.Time, res *SlotResult) {
	tokenized, err := s.repo.AssignTokens(ctx, slotDT)
	if err != nil {
		res.Error = fmt.Sprintf("failed to assign tokens: %v", err)
		return
	}

	for _, group := range tokenized {
		if group.Token == nil {
			continue
		}
		message := linenotify.GroupInviteMessage(s.opts.BaseURL, *group.Token)
		n, err := s.notifier.EnqueueGroup(ctx, group.ID, message)
		if err != nil {
			if res.Error == "" {
				res.Error = fmt.Sprintf("failed to enqueue notifications for group %d: %v", group.ID, err)
			}
			continue
		}
		res.Enqueued += n
	}
}

// slotAttributes verifies all entries agree on location and activity type
func slotAttributes(entries []SlotEntry) (string, string, error) {
	location := entries[0].Location
	typeMode := entries[0].TypeMode
	for _, e := range entries[1:] {
		if e.Location != location || e.TypeMode != typeMode {
			return "", "", ErrSlotInconsistent
		}
	}
	return location, typeMode, nil
}

func (s *service) ResolveGroupPage(ctx context.Context, token string) (*GroupPage, error) {
	page, err := s.repo.GetGroupByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, ErrGroupNotFound
	}

	if time.Now().After(groupPageExpiry(page.Group.SlotDT, s.opts.Location)) {
		return nil, ErrGroupNotFound
	}

	return page, nil
}

// groupPageExpiry is the end of the local day following the slot
func groupPageExpiry(slotDT time.Time, loc *time.Location) time.Time {
	local := slotDT.In(loc)
	nextDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 2)
	return nextDay.Add(-time.Nanosecond)
}
