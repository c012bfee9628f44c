package domain

import "time"

// AdminSession is the time-boxed admin credential. It carries only its start instant;
// validity is always derived from the timeout at check time.
type AdminSession struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// Remaining returns max(0, timeout - elapsed).
func (s *AdminSession) Remaining(now time.Time, timeout time.Duration) time.Duration {
	if s == nil || s.StartedAt.IsZero() {
		return 0
	}
	left := timeout - now.Sub(s.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Valid reports now - start < timeout.
func (s *AdminSession) Valid(now time.Time, timeout time.Duration) bool {
	if s == nil || s.StartedAt.IsZero() {
		return false
	}
	return now.Sub(s.StartedAt) < timeout
}

// ExpiresAt is the instant the session stops being valid.
func (s *AdminSession) ExpiresAt(timeout time.Duration) time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.StartedAt.Add(timeout)
}
