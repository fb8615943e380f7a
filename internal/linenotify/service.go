package linenotify

import (
	"context"
	"errors"
	"log"
	"time"
)

var ErrNoRecipient = errors.New("recipient has no LINE user id")

// how much of a delivery error we keep on the record
const maxErrorLength = 500

// a processing claim older than this belongs to a dead dispatcher
const staleClaimTimeout = 15 * time.Minute

type Service interface {
	// EnqueueGroup queues one notification per eligible member of the
	// group. Idempotent: members already queued are skipped.
	EnqueueGroup(ctx context.Context, groupID int64, message string) (int, error)

	// ProcessDue claims a batch of due notifications and attempts
	// delivery. Each record's outcome is independent; one failure never
	// blocks the rest of the batch.
	ProcessDue(ctx context.Context) (*DispatchStats, error)
}

type service struct {
	repo        Repository
	push        PushClient
	batchSize   int
	maxAttempts int
}

func NewService(repo Repository, push PushClient, batchSize, maxAttempts int) Service {
	return &service{
		repo:        repo,
		push:        push,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

func (s *service) EnqueueGroup(ctx context.Context, groupID int64, message string) (int, error) {
	inserted, err := s.repo.EnqueueGroup(ctx, groupID, message)
	if err != nil {
		return 0, err
	}
	RecordEnqueued(inserted)
	return inserted, nil
}

func (s *service) ProcessDue(ctx context.Context) (*DispatchStats, error) {
	start := time.Now()

	released, err := s.repo.ReleaseStale(ctx, start.Add(-staleClaimTimeout))
	if err != nil {
		return nil, err
	}
	if released > 0 {
		log.Printf("Returned %d stale notification claims to the retry pool", released)
	}

	claimed, err := s.repo.ClaimDue(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return nil, err
	}

	stats := &DispatchStats{Released: released, Claimed: len(claimed)}
	for _, n := range claimed {
		if err := s.deliver(ctx, n); err != nil {
			stats.Failed++
			s.recordFailure(ctx, n, err)
		} else {
			stats.Sent++
			if err := s.repo.MarkSent(ctx, n.ID, time.Now()); err != nil {
				log.Printf("Failed to mark notification %d sent: %v", n.ID, err)
			}
			RecordSent()
		}
	}

	ObserveDispatchDuration(time.Since(start))
	return stats, nil
}

// deliver attempts the actual push. A missing recipient id fails
// immediately without calling out.
func (s *service) deliver(ctx context.Context, n Notification) error {
	if n.LineUserID == "" {
		return ErrNoRecipient
	}
	return s.push.Push(ctx, n.LineUserID, n.MessageText)
}

func (s *service) recordFailure(ctx context.Context, n Notification, cause error) {
	attempts := n.Attempts + 1
	nextRetry := time.Now().Add(RetryDelay(attempts))
	msg := truncateError(cause.Error())

	if err := s.repo.MarkFailed(ctx, n.ID, attempts, nextRetry, msg); err != nil {
		log.Printf("Failed to mark notification %d failed: %v", n.ID, err)
		return
	}
	RecordFailed()

	if attempts >= s.maxAttempts {
		log.Printf("Notification %d reached %d attempts, giving up (last error: %s)", n.ID, attempts, msg)
	}
}

func truncateError(msg string) string {
	if len(msg) > maxErrorLength {
		return msg[:maxErrorLength]
	}
	return msg
}
