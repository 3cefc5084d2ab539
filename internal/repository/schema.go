package repository

import (
	"context"
	"fmt"
)

// 建表语句同时兼容MySQL与SQLite，逐条执行（MySQL驱动默认不支持多语句）。
// votes 表上的 uq_votes_voter_position 是"每人每职位一票"的最终保证。
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		email VARCHAR(255) NOT NULL DEFAULT '',
		name VARCHAR(255) NOT NULL DEFAULT '',
		role VARCHAR(32) NOT NULL DEFAULT '',
		user_type VARCHAR(32) NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		year VARCHAR(32) NOT NULL DEFAULT '',
		course VARCHAR(128) NOT NULL DEFAULT '',
		section VARCHAR(64) NOT NULL DEFAULT '',
		institute VARCHAR(128) NOT NULL DEFAULT '',
		department VARCHAR(128) NOT NULL DEFAULT '',
		unit VARCHAR(128) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS elections (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description VARCHAR(2000) NOT NULL DEFAULT '',
		campaign_start_date DATETIME NOT NULL,
		campaign_end_date DATETIME NOT NULL,
		election_start_date DATETIME NOT NULL,
		election_end_date DATETIME NOT NULL,
		status VARCHAR(16) NOT NULL,
		voter_restriction VARCHAR(32) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		is_official BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS positions (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		election_id VARCHAR(64) NOT NULL,
		title VARCHAR(255) NOT NULL,
		winner_count INT NOT NULL DEFAULT 1,
		sort_order INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (election_id) REFERENCES elections (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS candidates (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		election_id VARCHAR(64) NOT NULL,
		position_id VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		platform VARCHAR(4000) NOT NULL,
		image_url VARCHAR(1024) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		CONSTRAINT uq_candidates_user_election UNIQUE (user_id, election_id),
		FOREIGN KEY (election_id) REFERENCES elections (id) ON DELETE CASCADE,
		FOREIGN KEY (position_id) REFERENCES positions (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		voter_id VARCHAR(64) NOT NULL,
		election_id VARCHAR(64) NOT NULL,
		position_id VARCHAR(64) NOT NULL,
		candidate_id VARCHAR(64) NOT NULL,
		created_at DATETIME NOT NULL,
		CONSTRAINT uq_votes_voter_position UNIQUE (voter_id, election_id, position_id),
		FOREIGN KEY (election_id) REFERENCES elections (id),
		FOREIGN KEY (position_id) REFERENCES positions (id),
		FOREIGN KEY (candidate_id) REFERENCES candidates (id)
	)`,
}

// Migrate 创建所需的表，可重复执行
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.masterDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("创建表结构失败: %w", err)
		}
	}
	return nil
}
