package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/souschef/sous-chef/internal/model"
)

// Timer operations live on CookingSessionRepo because timers are
// owned sub-state of a session: every mutation checks the parent
// session inside the same transaction and stamps its last_active_at,
// since touching a timer is an interaction with the session.

// AddTimer starts a new running timer on an unfinished session. The
// label is required and the duration must be positive; violations
// are rejected with ErrConflict before any write. Starting a timer
// on a finished session fails with ErrInvalidTransition.
func (r *CookingSessionRepo) AddTimer(ctx context.Context, sessionID uint64, label string, durationSeconds int32) (*model.SessionTimer, error) {
	label = strings.TrimSpace(label)
	if label == "" || durationSeconds <= 0 {
		return nil, ErrConflict
	}
	now := time.Now().UTC().Truncate(time.Second)
	t := &model.SessionTimer{
		SessionID:       sessionID,
		Label:           label,
		DurationSeconds: durationSeconds,
		StartedAt:       now,
	}
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		s, err := lockSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if s.Finished() {
			return ErrInvalidTransition
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO session_timers (session_id, label, duration_seconds, started_at) VALUES (?,?,?,?)",
			t.SessionID, t.Label, t.DurationSeconds, t.StartedAt)
		if err != nil {
			return wrapStorage(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapStorage(err)
		}
		t.ID = uint64(id)
		return touchSession(ctx, tx, sessionID, now)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// PauseTimer freezes a running timer at the current instant. Pausing
// a timer that is already paused or completed fails with
// ErrInvalidTransition.
func (r *CookingSessionRepo) PauseTimer(ctx context.Context, timerID uint64) error {
	now := time.Now().UTC().Truncate(time.Second)
	return r.inTx(ctx, func(tx *sql.Tx) error {
		t, err := lockTimer(ctx, tx, timerID)
		if err != nil {
			return err
		}
		if !t.Running() {
			return ErrInvalidTransition
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE session_timers SET paused_at=? WHERE id=?", now, t.ID); err != nil {
			return wrapStorage(err)
		}
		return touchSession(ctx, tx, t.SessionID, now)
	})
}

// ResumeTimer restarts a paused timer. The paused duration is
// excluded from elapsed time: started_at is shifted forward by the
// length of the pause, so elapsed = now - started_at stays correct.
func (r *CookingSessionRepo) ResumeTimer(ctx context.Context, timerID uint64) error {
	now := time.Now().UTC().Truncate(time.Second)
	return r.inTx(ctx, func(tx *sql.Tx) error {
		t, err := lockTimer(ctx, tx, timerID)
		if err != nil {
			return err
		}
		if t.Completed || t.PausedAt == nil {
			return ErrInvalidTransition
		}
		shifted := t.StartedAt.Add(now.Sub(*t.PausedAt))
		if _, err := tx.ExecContext(ctx,
			"UPDATE session_timers SET started_at=?, paused_at=NULL WHERE id=?", shifted, t.ID); err != nil {
			return wrapStorage(err)
		}
		return touchSession(ctx, tx, t.SessionID, now)
	})
}

// CompleteTimer marks a timer done, whether its countdown elapsed or
// the cook finished it manually. Completing twice fails with
// ErrInvalidTransition.
func (r *CookingSessionRepo) CompleteTimer(ctx context.Context, timerID uint64) error {
	now := time.Now().UTC().Truncate(time.Second)
	return r.inTx(ctx, func(tx *sql.Tx) error {
		t, err := lockTimer(ctx, tx, timerID)
		if err != nil {
			return err
		}
		if t.Completed {
			return ErrInvalidTransition
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE session_timers SET completed=1 WHERE id=?", t.ID); err != nil {
			return wrapStorage(err)
		}
		return touchSession(ctx, tx, t.SessionID, now)
	})
}

// ListTimers returns all timers of a session in creation order.
func (r *CookingSessionRepo) ListTimers(ctx context.Context, sessionID uint64) ([]model.SessionTimer, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+timerColumns+" FROM session_timers WHERE session_id=? ORDER BY id", sessionID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()
	timers := make([]model.SessionTimer, 0)
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, wrapStorage(err)
		}
		timers = append(timers, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(err)
	}
	return timers, nil
}

func lockTimer(ctx context.Context, tx *sql.Tx, id uint64) (*model.SessionTimer, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+timerColumns+" FROM session_timers WHERE id=? FOR UPDATE", id)
	t, err := scanTimer(row)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return t, nil
}

func touchSession(ctx context.Context, tx *sql.Tx, sessionID uint64, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE cooking_sessions SET last_active_at=? WHERE id=?", now, sessionID); err != nil {
		return wrapStorage(err)
	}
	return nil
}
