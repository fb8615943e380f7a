package linenotify

import (
	"time"
)

// retrySchedule is the delay before retrying a failed delivery, indexed by
// how many attempts have already been made. Attempts beyond the schedule
// keep the last entry.
var retrySchedule = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	180 * time.Minute,
	720 * time.Minute,
	1440 * time.Minute,
}

// RetryDelay returns the backoff delay after the given attempt count.
// attempts is the value after incrementing, so the first failure
// (attempts = 1) retries after 1 minute.
func RetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	idx := attempts - 1
	if idx >= len(retrySchedule) {
		idx = len(retrySchedule) - 1
	}
	return retrySchedule[idx]
}
