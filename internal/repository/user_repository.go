package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/souschef/sous-chef/internal/model"
)

// UserRepo provides data access to the users table and its
// user_dietary_restrictions side table. Usernames are matched
// case-sensitively; emails are normalized to lower case before any
// read or write. Uniqueness of both is owned by the storage layer:
// the Exists* checks are a UX hint for registration flows, the
// unique constraints are the source of truth.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, username, email, password_hash, first_name, last_name, created_at, updated_at"

// Create inserts the user and their dietary restrictions in one
// transaction and populates the generated ID and audit timestamps on
// the provided record. Duplicate username or email is mapped to
// ErrUsernameExists / ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC().Truncate(time.Second)
	u.CreatedAt = now
	u.UpdatedAt = now

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorage(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, first_name, last_name, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapUserWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrapStorage(err)
	}
	u.ID = uint64(id)

	if err := insertRestrictions(ctx, tx, u.ID, u.DietaryRestrictions); err != nil {
		return wrapStorage(err)
	}
	if err := tx.Commit(); err != nil {
		return wrapStorage(err)
	}
	return nil
}

// GetByID fetches a user by id, including dietary restrictions.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// FindByUsername fetches a user by exact, case-sensitive username.
// Returns ErrNotFound when no such user exists.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username=? COLLATE utf8mb4_bin LIMIT 1", username)
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// ExistsByUsername reports whether a user with the given username
// exists. Intended to gate registration; the unique constraint still
// decides under concurrency.
func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username=? COLLATE utf8mb4_bin)", username).Scan(&exists)
	if err != nil {
		return false, wrapStorage(err)
	}
	return exists, nil
}

// ExistsByEmail reports whether a user with the given email exists.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email=?)", email).Scan(&exists)
	if err != nil {
		return false, wrapStorage(err)
	}
	return exists, nil
}

// Update persists the mutable fields of the user and replaces the
// dietary restriction set. created_at is never touched; updated_at
// is restamped.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorage(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET username=?, email=?, password_hash=?, first_name=?, last_name=?, updated_at=? WHERE id=?",
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.UpdatedAt, u.ID)
	if err != nil {
		return mapUserWriteErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports zero affected rows both for a missing row and
		// for a no-op update, so distinguish with an existence probe.
		var exists bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id=?)", u.ID).Scan(&exists); err != nil {
			return wrapStorage(err)
		}
		if !exists {
			return ErrNotFound
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_dietary_restrictions WHERE user_id=?", u.ID); err != nil {
		return wrapStorage(err)
	}
	if err := insertRestrictions(ctx, tx, u.ID, u.DietaryRestrictions); err != nil {
		return wrapStorage(err)
	}
	if err := tx.Commit(); err != nil {
		return wrapStorage(err)
	}
	return nil
}

// Delete removes the user and everything they own inside a single
// transaction: recipe steps, ingredients, tags, recipes, dietary
// restrictions, then the user row. Cooking sessions are non-owned
// references; a user with remaining sessions cannot be deleted and
// the call fails with ErrConflict, rolling everything back.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorage(err)
	}
	defer func() { _ = tx.Rollback() }()

	cascade := []string{
		"DELETE rs FROM recipe_steps rs JOIN recipes r ON r.id = rs.recipe_id WHERE r.user_id=?",
		"DELETE ri FROM recipe_ingredients ri JOIN recipes r ON r.id = ri.recipe_id WHERE r.user_id=?",
		"DELETE rt FROM recipe_tags rt JOIN recipes r ON r.id = rt.recipe_id WHERE r.user_id=?",
		"DELETE FROM recipes WHERE user_id=?",
		"DELETE FROM user_dietary_restrictions WHERE user_id=?",
	}
	for _, q := range cascade {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			if isMySQLErr(err, mysqlRowReferenced) {
				return ErrConflict
			}
			return wrapStorage(err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		if isMySQLErr(err, mysqlRowReferenced) {
			return ErrConflict
		}
		return wrapStorage(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return wrapStorage(err)
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, wrapStorage(err)
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT restriction FROM user_dietary_restrictions WHERE user_id=?", u.ID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()
	for rows.Next() {
		var restriction string
		if err := rows.Scan(&restriction); err != nil {
			return nil, wrapStorage(err)
		}
		u.DietaryRestrictions = append(u.DietaryRestrictions, restriction)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(err)
	}
	return &u, nil
}

// insertRestrictions writes the deduplicated restriction set for a
// user. The (user_id, restriction) primary key keeps the table a set
// even if callers pass duplicates.
func insertRestrictions(ctx context.Context, tx *sql.Tx, userID uint64, restrictions []string) error {
	seen := make(map[string]bool, len(restrictions))
	for _, restriction := range restrictions {
		restriction = strings.TrimSpace(restriction)
		if restriction == "" || seen[restriction] {
			continue
		}
		seen[restriction] = true
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_dietary_restrictions (user_id, restriction) VALUES (?,?)",
			userID, restriction); err != nil {
			return err
		}
	}
	return nil
}

// mapUserWriteErr translates duplicate-key violations on the users
// table into the sentinel the offended column implies.
func mapUserWriteErr(err error) error {
	if isMySQLErr(err, mysqlDupEntry) {
		if strings.Contains(err.Error(), "username") {
			return ErrUsernameExists
		}
		return ErrEmailExists
	}
	return wrapStorage(err)
}
