package http

import "time"

// rateLimiter is a fixed one-minute window counter. It is used by a single
// read loop and is not safe for concurrent use.
type rateLimiter struct {
	limit   int
	counter int
	window  time.Time
	now     func() time.Time
}

func newRateLimiter(limit int, now func() time.Time) *rateLimiter {
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{limit: limit, now: now}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	t := r.now()
	if t.Sub(r.window) >= time.Minute {
		r.window = t
		r.counter = 0
	}
	r.counter++
	return r.counter <= r.limit
}
