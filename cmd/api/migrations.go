// cmd/api/migrations.go
// Schema bootstrap; statements are idempotent.

package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		display_name VARCHAR(100) NOT NULL,
		avatar TEXT NOT NULL DEFAULT '',
		slug VARCHAR(100) UNIQUE NOT NULL,
		bio TEXT NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL DEFAULT '',
		images TEXT[] NOT NULL DEFAULT '{}',
		parent_id BIGINT REFERENCES posts(id) ON DELETE SET NULL,
		num_likes INTEGER NOT NULL DEFAULT 0,
		num_comments INTEGER NOT NULL DEFAULT 0,
		num_shares INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS post_likes (
		id BIGSERIAL PRIMARY KEY,
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (post_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS comments (
		id BIGSERIAL PRIMARY KEY,
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		parent_id BIGINT REFERENCES comments(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		num_likes INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS comment_likes (
		id BIGSERIAL PRIMARY KEY,
		comment_id BIGINT NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (comment_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		actor_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type VARCHAR(30) NOT NULL,
		post_id BIGINT REFERENCES posts(id) ON DELETE CASCADE,
		comment_id BIGINT REFERENCES comments(id) ON DELETE CASCADE,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_posts_parent ON posts(parent_id) WHERE parent_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user_active ON posts(user_id, is_active)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id) WHERE parent_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_post_likes_user ON post_likes(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read)`,
}

func runMigrations(db *sqlx.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
