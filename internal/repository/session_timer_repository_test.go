package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/souschef/sous-chef/internal/model"
)

func timerRow(id, sessionID uint64, pausedAt any, completed bool) *sqlmock.Rows {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "session_id", "label", "duration_seconds", "started_at", "paused_at", "completed",
	}).AddRow(id, sessionID, "Simmer", 600, started, pausedAt, completed)
}

func expectLockedTimer(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM session_timers WHERE id=? FOR UPDATE")).
		WillReturnRows(rows)
}

func expectSessionTouch(mock sqlmock.Sqlmock, sessionID uint64) {
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cooking_sessions SET last_active_at=?")).
		WithArgs(sqlmock.AnyArg(), sessionID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestAddTimerValidatesInput(t *testing.T) {
	repo, _ := newSessionRepoMock(t)

	if _, err := repo.AddTimer(context.Background(), 42, "  ", 60); !errors.Is(err, ErrConflict) {
		t.Errorf("blank label: err = %v, want ErrConflict", err)
	}
	if _, err := repo.AddTimer(context.Background(), 42, "Simmer", 0); !errors.Is(err, ErrConflict) {
		t.Errorf("zero duration: err = %v, want ErrConflict", err)
	}
}

func TestAddTimerStartsRunning(t *testing.T) {
	repo, mock := newSessionRepoMock(t)

	mock.ExpectBegin()
	expectLockedSession(mock, sessionRow(42, 3, 9, model.SessionActive, 1, nil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_timers")).
		WithArgs(uint64(42), "Simmer", int32(600), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	expectSessionTouch(mock, 42)
	mock.ExpectCommit()

	timer, err := repo.AddTimer(context.Background(), 42, "Simmer", 600)
	if err != nil {
		t.Fatalf("add timer: %v", err)
	}
	if timer.ID != 7 || !timer.Running() {
		t.Errorf("unexpected timer: %+v", timer)
	}
}

func TestAddTimerOnFinishedSessionRejected(t *testing.T) {
	repo, mock := newSessionRepoMock(t)

	done := time.Now().UTC().Truncate(time.Second)
	mock.ExpectBegin()
	expectLockedSession(mock, sessionRow(42, 3, 9, model.SessionCompleted, 3, done))
	mock.ExpectRollback()

	_, err := repo.AddTimer(context.Background(), 42, "Simmer", 600)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestPauseTimer(t *testing.T) {
	repo, mock := newSessionRepoMock(t)

	mock.ExpectBegin()
	expectLockedTimer(mock, timerRow(7, 42, nil, false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE session_timers SET paused_at=?")).
		WithArgs(sqlmock.AnyArg(), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectSessionTouch(mock, 42)
	mock.ExpectCommit()

	if err := repo.PauseTimer(context.Background(), 7); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPauseTimerAlreadyPausedRejected(t *testing.T) {
	repo, mock := newSessionRepoMock(t)

	paused := time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC)
	mock.ExpectBegin()
	expectLockedTimer(mock, timerRow(7, 42, paused, false))
	mock.ExpectRollback()

	if err := repo.PauseTimer(context.Background(), 7); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestResumeTimerShiftsStart(t *testing.T) {
	repo, mock := newSessionRepoMock(t)

	paused := time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC)
	mock.ExpectBegin()
	expectLockedTimer(mock, timerRow(7, 42, paused, false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE session_timers SET started_at=?, paused_at=NULL")).
		WithArgs(sqlmock.AnyArg(), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectSessionTouch(mock, 42)
	mock.ExpectCommit()

	if err := repo.ResumeTimer(context.Background(), 7); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestResumeTimerNotPausedRejected(t *testing.T) {
	repo, mock := newSessionRepoMock(t)

	mock.ExpectBegin()
	expectLockedTimer(mock, timerRow(7, 42, nil, false))
	mock.ExpectRollback()

	if err := repo.ResumeTimer(context.Background(), 7); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestCompleteTimerTwiceRejected(t *testing.T) {
	repo, mock := newSessionRepoMock(t)

	mock.ExpectBegin()
	expectLockedTimer(mock, timerRow(7, 42, nil, true))
	mock.ExpectRollback()

	if err := repo.CompleteTimer(context.Background(), 7); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestSessionDeleteRemovesTimersFirst(t *testing.T) {
	repo, mock := newSessionRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_timers WHERE session_id=?")).
		WithArgs(uint64(42)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cooking_sessions WHERE id=?")).
		WithArgs(uint64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), 42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
