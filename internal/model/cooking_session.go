package model

import "time"

// SessionState is the closed set of states a cooking session can
// be in.  Values are stored upper-case in `cooking_sessions.state`.
// COMPLETED and ABANDONED are terminal; both stamp completed_at so
// that the one-active-session-per-user guard releases.
type SessionState string

const (
	SessionActive    SessionState = "ACTIVE"
	SessionPaused    SessionState = "PAUSED"
	SessionCompleted SessionState = "COMPLETED"
	SessionAbandoned SessionState = "ABANDONED"
)

// Valid reports whether s is one of the known session states.
func (s SessionState) Valid() bool {
	switch s {
	case SessionActive, SessionPaused, SessionCompleted, SessionAbandoned:
		return true
	}
	return false
}

// Terminal reports whether s is a final state.  A session in a
// terminal state can never be reopened.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// CanTransition reports whether moving from s to target is a legal
// state-machine edge.  Completion is additionally gated on the
// session having reached the recipe's final step; that check lives
// in the repository where the step count is known.
func (s SessionState) CanTransition(target SessionState) bool {
	switch s {
	case SessionActive:
		return target == SessionPaused || target == SessionCompleted || target == SessionAbandoned
	case SessionPaused:
		return target == SessionActive || target == SessionAbandoned
	}
	return false
}

// CookingSession represents a row in the `cooking_sessions` table:
// one user's walk through one recipe's steps.  The user and recipe
// references are non-owning; deleting a session never touches
// either.  Timers are owned and deleted with the session.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – user running the session, required.
//  RecipeID     – recipe being cooked, required.
//  State        – current state-machine state.
//  CurrentStep  – 1-based index into the recipe's ordered steps.
//                 Monotonically non-decreasing, never past the
//                 recipe's step count.
//  StartedAt    – stamped at creation.
//  LastActiveAt – restamped on every interaction.
//  CompletedAt  – stamped once at the terminal transition, nil
//                 while the session is unfinished.
//  Timers       – timers started during this session.
type CookingSession struct {
	ID           uint64         // cooking_sessions.id
	UserID       uint64         // cooking_sessions.user_id
	RecipeID     uint64         // cooking_sessions.recipe_id
	State        SessionState   // cooking_sessions.state
	CurrentStep  int32          // cooking_sessions.current_step
	StartedAt    time.Time      // cooking_sessions.started_at
	LastActiveAt time.Time      // cooking_sessions.last_active_at
	CompletedAt  *time.Time     // cooking_sessions.completed_at (nullable)
	Timers       []SessionTimer // session_timers rows
}

// Finished reports whether the session has reached a terminal
// state.  A session is "active" in the glossary sense exactly when
// this is false.
func (s *CookingSession) Finished() bool {
	return s.CompletedAt != nil
}
