package database

import (
	"context"
	"database/sql"
)

// Migrate applies the schema. Statements are idempotent so the
// server can run this unconditionally at startup.
//
// Constraints the application relies on:
//   - users.username and users.email are unique.
//   - recipe_steps are unique per (recipe_id, step_number).
//   - cooking_sessions.active_flag is a stored generated column that
//     is 1 while completed_at is NULL and NULL afterwards; the unique
//     key on (user_id, active_flag) therefore admits at most one
//     unfinished session per user while finished rows never collide.
//     This is the storage-level guard against the concurrent
//     session-creation race.
//   - side tables cascade on delete of their parent; recipes and
//     cooking_sessions use RESTRICT so the application's transactional
//     cascade (or an ErrConflict) decides.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			username      VARCHAR(64)  NOT NULL,
			email         VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			first_name    VARCHAR(100) NULL,
			last_name     VARCHAR(100) NULL,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL,
			UNIQUE KEY uq_users_username (username),
			UNIQUE KEY uq_users_email (email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS user_dietary_restrictions (
			user_id     BIGINT UNSIGNED NOT NULL,
			restriction VARCHAR(64) NOT NULL,
			PRIMARY KEY (user_id, restriction),
			CONSTRAINT fk_restrictions_user FOREIGN KEY (user_id)
				REFERENCES users (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS recipes (
			id                BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id           BIGINT UNSIGNED NOT NULL,
			title             VARCHAR(255) NOT NULL,
			description       TEXT NULL,
			cuisine           VARCHAR(32) NULL,
			prep_time_minutes INT NULL,
			cook_time_minutes INT NULL,
			servings          INT NULL,
			difficulty        VARCHAR(16) NULL,
			is_public         TINYINT(1) NOT NULL DEFAULT 0,
			image_url         VARCHAR(512) NULL,
			created_at        DATETIME NOT NULL,
			updated_at        DATETIME NOT NULL,
			KEY idx_recipes_user (user_id),
			KEY idx_recipes_public (is_public),
			CONSTRAINT fk_recipes_user FOREIGN KEY (user_id)
				REFERENCES users (id) ON DELETE RESTRICT
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS recipe_ingredients (
			recipe_id  BIGINT UNSIGNED NOT NULL,
			position   INT NOT NULL,
			ingredient VARCHAR(255) NOT NULL,
			PRIMARY KEY (recipe_id, position),
			CONSTRAINT fk_ingredients_recipe FOREIGN KEY (recipe_id)
				REFERENCES recipes (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS recipe_tags (
			recipe_id   BIGINT UNSIGNED NOT NULL,
			recipe_tags VARCHAR(64) NOT NULL,
			PRIMARY KEY (recipe_id, recipe_tags),
			CONSTRAINT fk_tags_recipe FOREIGN KEY (recipe_id)
				REFERENCES recipes (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS recipe_steps (
			id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			recipe_id     BIGINT UNSIGNED NOT NULL,
			step_number   INT NOT NULL,
			instruction   TEXT NOT NULL,
			timer_minutes INT NULL,
			timer_label   VARCHAR(100) NULL,
			UNIQUE KEY uq_recipe_step (recipe_id, step_number),
			CONSTRAINT fk_steps_recipe FOREIGN KEY (recipe_id)
				REFERENCES recipes (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS cooking_sessions (
			id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id        BIGINT UNSIGNED NOT NULL,
			recipe_id      BIGINT UNSIGNED NOT NULL,
			state          VARCHAR(16) NOT NULL,
			current_step   INT NOT NULL DEFAULT 1,
			started_at     DATETIME NOT NULL,
			last_active_at DATETIME NOT NULL,
			completed_at   DATETIME NULL,
			active_flag    TINYINT AS (IF(completed_at IS NULL, 1, NULL)) STORED,
			UNIQUE KEY uq_sessions_user_active (user_id, active_flag),
			KEY idx_sessions_user_started (user_id, started_at),
			CONSTRAINT fk_sessions_user FOREIGN KEY (user_id)
				REFERENCES users (id) ON DELETE RESTRICT,
			CONSTRAINT fk_sessions_recipe FOREIGN KEY (recipe_id)
				REFERENCES recipes (id) ON DELETE RESTRICT
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS session_timers (
			id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			session_id       BIGINT UNSIGNED NOT NULL,
			label            VARCHAR(100) NOT NULL,
			duration_seconds INT NOT NULL,
			started_at       DATETIME NOT NULL,
			paused_at        DATETIME NULL,
			completed        TINYINT(1) NOT NULL DEFAULT 0,
			KEY idx_timers_session (session_id),
			CONSTRAINT fk_timers_session FOREIGN KEY (session_id)
				REFERENCES cooking_sessions (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
