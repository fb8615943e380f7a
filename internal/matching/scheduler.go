package matching

import (
	"context"
	"log"
	"time"
)

// Scheduler fires the daily matching run at a fixed local hour, matching
// for the following day's slots.
type Scheduler struct {
	service Service
	hour    int
	loc     *time.Location
}

func NewScheduler(service Service, hour int, loc *time.Location) *Scheduler {
	return &Scheduler{service: service, hour: hour, loc: loc}
}

func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("Starting match scheduler: daily run at %02d:00 %s", s.hour, s.loc)

	for {
		now := time.Now().In(s.loc)
		next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.loc)
		if !now.Before(next) {
			next = next.AddDate(0, 0, 1)
		}

		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			target := time.Now().In(s.loc).AddDate(0, 0, 1)
			if _, err := s.service.RunDaily(ctx, target); err != nil {
				log.Printf("Daily match run failed: %v", err)
			}
		case <-ctx.Done():
			timer.Stop()
			log.Println("Context cancelled, stopping match scheduler")
			return
		}
	}
}
