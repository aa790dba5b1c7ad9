package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are idempotent CREATE TABLE statements executed at
// startup. Proper versioned migration tooling is handled outside the
// application; this keeps fresh environments bootable.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(50)  NOT NULL DEFAULT 'user',
		is_active     TINYINT(1)   NOT NULL DEFAULT 0,
		invited_by    CHAR(36)     NULL,
		created_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email),
		CONSTRAINT fk_users_invited_by FOREIGN KEY (invited_by) REFERENCES users (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS activations (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id         CHAR(36)        NOT NULL,
		activation_code VARCHAR(255)    NOT NULL,
		is_used         TINYINT(1)      NOT NULL DEFAULT 0,
		created_at      TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_activations_code (activation_code),
		KEY idx_activations_user (user_id),
		CONSTRAINT fk_activations_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS token_blacklist (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		jti        VARCHAR(64)     NOT NULL,
		user_id    CHAR(36)        NOT NULL,
		created_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP       NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_token_blacklist_jti (jti),
		KEY idx_token_blacklist_user (user_id),
		KEY idx_token_blacklist_expires (expires_at),
		CONSTRAINT fk_token_blacklist_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS invitations (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email      VARCHAR(255)    NOT NULL,
		role       VARCHAR(50)     NOT NULL,
		creator_id CHAR(36)        NOT NULL,
		token      VARCHAR(255)    NOT NULL,
		created_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP       NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_invitations_token (token),
		KEY idx_invitations_email (email),
		CONSTRAINT fk_invitations_creator FOREIGN KEY (creator_id) REFERENCES users (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS projects (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name       VARCHAR(255)    NOT NULL,
		owner_id   CHAR(36)        NOT NULL,
		created_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_projects_name (name),
		KEY idx_projects_owner (owner_id),
		CONSTRAINT fk_projects_owner FOREIGN KEY (owner_id) REFERENCES users (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS project_versions (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		project_id BIGINT UNSIGNED NOT NULL,
		version    VARCHAR(32)     NOT NULL,
		active     TINYINT(1)      NOT NULL DEFAULT 0,
		created_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_project_versions_label (project_id, version),
		CONSTRAINT fk_project_versions_project FOREIGN KEY (project_id) REFERENCES projects (id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
}

// Migrate runs the bootstrap statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
