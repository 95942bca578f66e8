package model

import (
	"testing"
	"time"
)

func TestSessionStateValid(t *testing.T) {
	for _, s := range []SessionState{SessionActive, SessionPaused, SessionCompleted, SessionAbandoned} {
		if !s.Valid() {
			t.Errorf("state %q should be valid", s)
		}
	}
	if SessionState("RUNNING").Valid() {
		t.Error("unknown state should not be valid")
	}
	if SessionState("").Valid() {
		t.Error("empty state should not be valid")
	}
}

func TestSessionStateTerminal(t *testing.T) {
	if SessionActive.Terminal() || SessionPaused.Terminal() {
		t.Error("ACTIVE and PAUSED are not terminal")
	}
	if !SessionCompleted.Terminal() || !SessionAbandoned.Terminal() {
		t.Error("COMPLETED and ABANDONED are terminal")
	}
}

func TestSessionStateTransitions(t *testing.T) {
	cases := []struct {
		from, to SessionState
		ok       bool
	}{
		{SessionActive, SessionPaused, true},
		{SessionActive, SessionCompleted, true},
		{SessionActive, SessionAbandoned, true},
		{SessionActive, SessionActive, false},
		{SessionPaused, SessionActive, true},
		{SessionPaused, SessionAbandoned, true},
		{SessionPaused, SessionCompleted, false},
		{SessionPaused, SessionPaused, false},
		// Terminal states admit nothing; a completed session can
		// never be reopened.
		{SessionCompleted, SessionActive, false},
		{SessionCompleted, SessionPaused, false},
		{SessionCompleted, SessionAbandoned, false},
		{SessionAbandoned, SessionActive, false},
		{SessionAbandoned, SessionCompleted, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestSessionFinished(t *testing.T) {
	s := CookingSession{State: SessionActive}
	if s.Finished() {
		t.Error("session without completed_at is not finished")
	}
	now := time.Now()
	s.CompletedAt = &now
	if !s.Finished() {
		t.Error("session with completed_at is finished")
	}
}
