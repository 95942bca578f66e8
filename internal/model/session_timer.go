package model

import "time"

// SessionTimer represents a row in the `session_timers` table: a
// countdown started during a cooking session (e.g. "simmer 10
// minutes").  A timer is created running.  Pausing records the
// pause instant; resuming shifts StartedAt forward by the paused
// duration so that elapsed time excludes the pause.  Timers are
// auxiliary sub-state: a session may complete while its timers are
// still running.
//
// Fields:
//  ID              – primary key identifier.
//  SessionID       – owning cooking session, required.
//  Label           – required human-readable label.
//  DurationSeconds – required positive countdown length.
//  StartedAt       – when the countdown (re)started.
//  PausedAt        – pause instant, nil while running.
//  Completed       – set when the countdown elapsed or was
//                    finished manually; defaults to false.
type SessionTimer struct {
	ID              uint64     // session_timers.id
	SessionID       uint64     // session_timers.session_id
	Label           string     // session_timers.label
	DurationSeconds int32      // session_timers.duration_seconds
	StartedAt       time.Time  // session_timers.started_at
	PausedAt        *time.Time // session_timers.paused_at (nullable)
	Completed       bool       // session_timers.completed
}

// Running reports whether the timer is counting down: not paused
// and not completed.
func (t *SessionTimer) Running() bool {
	return t.PausedAt == nil && !t.Completed
}

// Elapsed returns how much countdown time has passed as of now.
// While paused, the clock is frozen at the pause instant.
func (t *SessionTimer) Elapsed(now time.Time) time.Duration {
	if t.PausedAt != nil {
		return t.PausedAt.Sub(t.StartedAt)
	}
	return now.Sub(t.StartedAt)
}

// Remaining returns the countdown time left as of now, never
// negative.
func (t *SessionTimer) Remaining(now time.Time) time.Duration {
	rem := time.Duration(t.DurationSeconds)*time.Second - t.Elapsed(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// Expired reports whether the countdown has fully elapsed as of
// now.  Expiry does not imply Completed; marking the timer done is
// an explicit repository operation.
func (t *SessionTimer) Expired(now time.Time) bool {
	return t.Elapsed(now) >= time.Duration(t.DurationSeconds)*time.Second
}
