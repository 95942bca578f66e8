package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/souschef/sous-chef/internal/model"
)

// CookingSessionRepo provides data access to the cooking_sessions
// table and its owned session_timers. It is the owner of the session
// state machine: every transition is validated against the current
// row inside a transaction before anything is written, and the
// "one unfinished session per user" rule is enforced by the unique
// index on (user_id, active_flag) rather than by a pre-check.
// All timestamps are stored in UTC.
type CookingSessionRepo struct {
	db *sql.DB
}

// NewCookingSessionRepo returns a repo bound to the given database.
func NewCookingSessionRepo(db *sql.DB) *CookingSessionRepo { return &CookingSessionRepo{db: db} }

const sessionColumns = "id, user_id, recipe_id, state, current_step, started_at, last_active_at, completed_at"
const timerColumns = "id, session_id, label, duration_seconds, started_at, paused_at, completed"

// Start creates a new session for the user on the recipe: state
// ACTIVE, current step 1, started/last-active stamped now. The
// insert itself collides with the active-session unique index when
// the user already has an unfinished session, which maps to
// ErrActiveSessionExists; a missing user or recipe maps to
// ErrNotFound.
func (r *CookingSessionRepo) Start(ctx context.Context, userID, recipeID uint64) (*model.CookingSession, error) {
	now := time.Now().UTC().Truncate(time.Second)
	s := &model.CookingSession{
		UserID:       userID,
		RecipeID:     recipeID,
		State:        model.SessionActive,
		CurrentStep:  1,
		StartedAt:    now,
		LastActiveAt: now,
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO cooking_sessions (user_id, recipe_id, state, current_step, started_at, last_active_at) VALUES (?,?,?,?,?,?)",
		s.UserID, s.RecipeID, string(s.State), s.CurrentStep, s.StartedAt, s.LastActiveAt)
	if err != nil {
		if isMySQLErr(err, mysqlDupEntry) {
			return nil, ErrActiveSessionExists
		}
		if isMySQLErr(err, mysqlNoReferenced) {
			return nil, ErrNotFound
		}
		return nil, wrapStorage(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, wrapStorage(err)
	}
	s.ID = uint64(id)
	return s, nil
}

// FindActiveByUser returns the user's unfinished session (completed_at
// absent), or ErrNotFound when the user has none.
func (r *CookingSessionRepo) FindActiveByUser(ctx context.Context, userID uint64) (*model.CookingSession, error) {
	return r.getOne(ctx,
		"SELECT "+sessionColumns+" FROM cooking_sessions WHERE user_id=? AND completed_at IS NULL LIMIT 1", userID)
}

// GetByID fetches a session by id, timers included.
func (r *CookingSessionRepo) GetByID(ctx context.Context, id uint64) (*model.CookingSession, error) {
	return r.getOne(ctx, "SELECT "+sessionColumns+" FROM cooking_sessions WHERE id=? LIMIT 1", id)
}

// ListByUser returns all of the user's sessions, unfinished and
// finished, most recently started first. Used for history display.
func (r *CookingSessionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.CookingSession, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM cooking_sessions WHERE user_id=? ORDER BY started_at DESC, id DESC", userID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()

	sessions := make([]model.CookingSession, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, wrapStorage(err)
		}
		index[s.ID] = len(sessions)
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(err)
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	ids := make([]any, 0, len(sessions))
	placeholders := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
		placeholders = append(placeholders, "?")
	}
	trows, err := r.db.QueryContext(ctx,
		"SELECT "+timerColumns+" FROM session_timers WHERE session_id IN ("+strings.Join(placeholders, ",")+") ORDER BY session_id, id", ids...)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer trows.Close()
	for trows.Next() {
		t, err := scanTimer(trows)
		if err != nil {
			return nil, wrapStorage(err)
		}
		if i, ok := index[t.SessionID]; ok {
			sessions[i].Timers = append(sessions[i].Timers, *t)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, wrapStorage(err)
	}
	return sessions, nil
}

// Advance moves the session one step forward. The session must be
// ACTIVE and not yet on the recipe's final step; otherwise the call
// fails with ErrInvalidTransition and nothing is written. The step
// count is read inside the same transaction as the guarded row.
func (r *CookingSessionRepo) Advance(ctx context.Context, sessionID uint64) (*model.CookingSession, error) {
	now := time.Now().UTC().Truncate(time.Second)
	var out *model.CookingSession
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		s, err := lockSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if s.State != model.SessionActive {
			return ErrInvalidTransition
		}
		total, err := stepCountTx(ctx, tx, s.RecipeID)
		if err != nil {
			return err
		}
		if s.CurrentStep >= total {
			return ErrInvalidTransition
		}
		s.CurrentStep++
		s.LastActiveAt = now
		_, err = tx.ExecContext(ctx,
			"UPDATE cooking_sessions SET current_step=?, last_active_at=? WHERE id=?",
			s.CurrentStep, s.LastActiveAt, s.ID)
		if err != nil {
			return wrapStorage(err)
		}
		out = s
		return nil
	})
	return out, err
}

// Pause suspends an ACTIVE session.
func (r *CookingSessionRepo) Pause(ctx context.Context, sessionID uint64) error {
	return r.transition(ctx, sessionID, model.SessionPaused)
}

// Resume reactivates a PAUSED session.
func (r *CookingSessionRepo) Resume(ctx context.Context, sessionID uint64) error {
	return r.transition(ctx, sessionID, model.SessionActive)
}

// Complete finishes the session. Permitted only from ACTIVE with
// the current step at the recipe's final step; completed_at is
// stamped, the state frozen, and the active-session slot released.
// A completed session can never be reopened. Timers are left
// untouched; they do not gate completion.
func (r *CookingSessionRepo) Complete(ctx context.Context, sessionID uint64) (*model.CookingSession, error) {
	now := time.Now().UTC().Truncate(time.Second)
	var out *model.CookingSession
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		s, err := lockSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !s.State.CanTransition(model.SessionCompleted) {
			return ErrInvalidTransition
		}
		total, err := stepCountTx(ctx, tx, s.RecipeID)
		if err != nil {
			return err
		}
		if total == 0 || s.CurrentStep < total {
			return ErrInvalidTransition
		}
		s.State = model.SessionCompleted
		s.LastActiveAt = now
		s.CompletedAt = &now
		_, err = tx.ExecContext(ctx,
			"UPDATE cooking_sessions SET state=?, last_active_at=?, completed_at=? WHERE id=?",
			string(s.State), s.LastActiveAt, s.CompletedAt, s.ID)
		if err != nil {
			return wrapStorage(err)
		}
		out = s
		return nil
	})
	return out, err
}

// Abandon terminates an unfinished session without completing it.
// completed_at is stamped so the user's active-session slot frees up.
func (r *CookingSessionRepo) Abandon(ctx context.Context, sessionID uint64) error {
	return r.transition(ctx, sessionID, model.SessionAbandoned)
}

// Delete removes the session and its timers in one transaction. The
// referenced user and recipe are never touched.
func (r *CookingSessionRepo) Delete(ctx context.Context, sessionID uint64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM session_timers WHERE session_id=?", sessionID); err != nil {
			return wrapStorage(err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM cooking_sessions WHERE id=?", sessionID)
		if err != nil {
			return wrapStorage(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// transition applies a plain state change (no step arithmetic) after
// validating the edge against the locked row.
func (r *CookingSessionRepo) transition(ctx context.Context, sessionID uint64, target model.SessionState) error {
	now := time.Now().UTC().Truncate(time.Second)
	return r.inTx(ctx, func(tx *sql.Tx) error {
		s, err := lockSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !s.State.CanTransition(target) {
			return ErrInvalidTransition
		}
		var completedAt any
		if target.Terminal() {
			completedAt = now
		} else {
			completedAt = s.CompletedAt
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE cooking_sessions SET state=?, last_active_at=?, completed_at=? WHERE id=?",
			string(target), now, completedAt, s.ID)
		if err != nil {
			return wrapStorage(err)
		}
		return nil
	})
}

func (r *CookingSessionRepo) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorage(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapStorage(err)
	}
	return nil
}

// lockSession reads the session row FOR UPDATE so concurrent
// transitions on the same session serialize at the database.
func lockSession(ctx context.Context, tx *sql.Tx, id uint64) (*model.CookingSession, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM cooking_sessions WHERE id=? FOR UPDATE", id)
	s, err := scanSession(row)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return s, nil
}

func stepCountTx(ctx context.Context, tx *sql.Tx, recipeID uint64) (int32, error) {
	var n int32
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM recipe_steps WHERE recipe_id=?", recipeID).Scan(&n); err != nil {
		return 0, wrapStorage(err)
	}
	return n, nil
}

func (r *CookingSessionRepo) getOne(ctx context.Context, query string, arg any) (*model.CookingSession, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	s, err := scanSession(row)
	if err != nil {
		return nil, wrapStorage(err)
	}
	timers, err := r.ListTimers(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Timers = timers
	return s, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanSession(row rowScanner) (*model.CookingSession, error) {
	var s model.CookingSession
	var state string
	var completedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.UserID, &s.RecipeID, &state, &s.CurrentStep,
		&s.StartedAt, &s.LastActiveAt, &completedAt); err != nil {
		return nil, err
	}
	s.State = model.SessionState(state)
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	return &s, nil
}

func scanTimer(row rowScanner) (*model.SessionTimer, error) {
	var t model.SessionTimer
	var pausedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.SessionID, &t.Label, &t.DurationSeconds,
		&t.StartedAt, &pausedAt, &t.Completed); err != nil {
		return nil, err
	}
	if pausedAt.Valid {
		p := pausedAt.Time
		t.PausedAt = &p
	}
	return &t, nil
}
