package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/souschef/sous-chef/internal/model"
)

func newUserRepoMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), mock
}

func userRows(id uint64, username, email string) *sqlmock.Rows {
	now := time.Now().UTC().Truncate(time.Second)
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "first_name", "last_name", "created_at", "updated_at",
	}).AddRow(id, username, email, "$2a$10$hash", nil, nil, now, now)
}

func TestUserCreateStampsAndNormalizes(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "alice@x.com", "$2a$10$hash", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_dietary_restrictions")).
		WithArgs(uint64(7), "vegetarian").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u := &model.User{
		Username:     "alice",
		Email:        "  Alice@X.com ",
		PasswordHash: "$2a$10$hash",
		// Duplicate entries collapse before hitting the storage set.
		DietaryRestrictions: []string{"vegetarian", "vegetarian"},
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID != 7 {
		t.Errorf("id = %d, want 7", u.ID)
	}
	if u.Email != "alice@x.com" {
		t.Errorf("email not normalized: %q", u.Email)
	}
	if u.CreatedAt.IsZero() || !u.CreatedAt.Equal(u.UpdatedAt) {
		t.Errorf("audit timestamps not stamped: created=%v updated=%v", u.CreatedAt, u.UpdatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUserCreateDuplicateUsername(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'alice' for key 'users.uq_users_username'"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.User{Username: "alice", Email: "alice@x.com"})
	if !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("err = %v, want ErrUsernameExists", err)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'alice@x.com' for key 'users.uq_users_email'"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.User{Username: "alice2", Email: "alice@x.com"})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("err = %v, want ErrEmailExists", err)
	}
}

func TestUserFindByUsername(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=? COLLATE utf8mb4_bin")).
		WithArgs("alice").
		WillReturnRows(userRows(3, "alice", "alice@x.com"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT restriction FROM user_dietary_restrictions")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"restriction"}).AddRow("vegan"))

	u, err := repo.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.ID != 3 || u.Username != "alice" {
		t.Errorf("unexpected user: %+v", u)
	}
	if len(u.DietaryRestrictions) != 1 || u.DietaryRestrictions[0] != "vegan" {
		t.Errorf("restrictions = %v", u.DietaryRestrictions)
	}
}

func TestUserFindByEmailAbsentIsNotFound(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("nobody@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@x.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUserExistsByUsername(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE username=?")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Error("want true")
	}
}

func TestUserDeleteCascadesInOneTransaction(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE rs FROM recipe_steps")).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE ri FROM recipe_ingredients")).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectExec(regexp.QuoteMeta("DELETE rt FROM recipe_tags")).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM recipes WHERE user_id=?")).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_dietary_restrictions")).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id=?")).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), 3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUserDeleteWithSessionsConflicts(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE rs FROM recipe_steps")).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE ri FROM recipe_ingredients")).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE rt FROM recipe_tags")).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM recipes WHERE user_id=?")).
		WithArgs(uint64(3)).
		WillReturnError(errors.New("Error 1451 (23000): Cannot delete or update a parent row: a foreign key constraint fails (`souschef`.`cooking_sessions`, CONSTRAINT `fk_sessions_recipe`)"))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 3)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUserDeleteMissing(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	for _, q := range []string{"DELETE rs FROM recipe_steps", "DELETE ri FROM recipe_ingredients", "DELETE rt FROM recipe_tags", "DELETE FROM recipes WHERE user_id=?", "DELETE FROM user_dietary_restrictions"} {
		mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs(uint64(99)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id=?")).
		WithArgs(uint64(99)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
