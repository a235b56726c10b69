package ble

import "time"

// maxBackoffShift keeps 1<<attempt inside time.Duration.
const maxBackoffShift = 30

// BackoffDelay returns the reconnection delay for attempt n (1s, 2s, 4s, ...),
// capped at maxSeconds.
func BackoffDelay(attempt int, maxSeconds int) time.Duration {
	max := time.Duration(maxSeconds) * time.Second
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffShift {
		return max
	}
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > max {
		return max
	}
	return delay
}
