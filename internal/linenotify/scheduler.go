package linenotify

import (
	"context"
	"log"
	"time"
)

// DispatchScheduler drives periodic dispatcher passes
type DispatchScheduler struct {
	service  Service
	interval time.Duration
	stopCh   chan struct{}
}

// NewDispatchScheduler creates a new dispatch scheduler
func NewDispatchScheduler(service Service, interval time.Duration) *DispatchScheduler {
	if interval == 0 {
		interval = 1 * time.Minute
	}

	return &DispatchScheduler{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *DispatchScheduler) Start(ctx context.Context) {
	log.Printf("Starting LINE dispatch scheduler with interval: %v", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.process(ctx)

	for {
		select {
		case <-ticker.C:
			s.process(ctx)
		case <-s.stopCh:
			log.Println("Stopping LINE dispatch scheduler")
			return
		case <-ctx.Done():
			log.Println("Context cancelled, stopping LINE dispatch scheduler")
			return
		}
	}
}

// Stop stops the scheduler
func (s *DispatchScheduler) Stop() {
	close(s.stopCh)
}

func (s *DispatchScheduler) process(ctx context.Context) {
	stats, err := s.service.ProcessDue(ctx)
	if err != nil {
		log.Printf("Error processing due notifications: %v", err)
		return
	}
	if stats.Claimed > 0 {
		log.Printf("Dispatched notifications: claimed=%d sent=%d failed=%d",
			stats.Claimed, stats.Sent, stats.Failed)
	}
}
