package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const schemaVersion = 1

// schema is written in the subset of DDL both MySQL and SQLite accept.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id                VARCHAR(32)  NOT NULL PRIMARY KEY,
		name              VARCHAR(255) NOT NULL,
		dept              VARCHAR(16)  NOT NULL,
		hall              VARCHAR(255) NULL,
		room              VARCHAR(32)  NULL,
		email             VARCHAR(255) NOT NULL UNIQUE,
		password_hash     VARCHAR(255) NOT NULL,
		hall_fee          INTEGER      NULL,
		library_fee       INTEGER      NULL,
		dept_fee          INTEGER      NULL,
		verified          BOOLEAN      NOT NULL DEFAULT 0,
		otp_hash          VARCHAR(255) NULL,
		otp_expires_at    DATETIME     NULL,
		otp_attempts_left INTEGER      NULL,
		photo_path        VARCHAR(512) NULL,
		created_at        DATETIME     NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS librarians (
		email         VARCHAR(255) NOT NULL PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id             VARCHAR(32)  NOT NULL PRIMARY KEY,
		title          VARCHAR(255) NOT NULL,
		author         VARCHAR(255) NOT NULL,
		category       VARCHAR(128) NOT NULL DEFAULT '',
		status         VARCHAR(32)  NOT NULL DEFAULT 'available',
		issue_due_date VARCHAR(10)  NULL,
		created_at     DATETIME     NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS book_sequence (
		name       VARCHAR(32) NOT NULL PRIMARY KEY,
		last_value INTEGER     NOT NULL
	)`,
}

// Migrate creates the schema when the recorded version is behind.  The
// whole upgrade, including the version bump, runs in one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_meta (
		name  VARCHAR(64)  NOT NULL PRIMARY KEY,
		value VARCHAR(255) NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_meta: %w", err)
	}

	var current int
	err := db.QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE name = 'schema_version'`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}

	var seeded int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM book_sequence WHERE name = 'books'`).Scan(&seeded); err != nil {
		return fmt.Errorf("check book_sequence: %w", err)
	}
	if seeded == 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO book_sequence (name, last_value) VALUES ('books', 0)`); err != nil {
			return fmt.Errorf("seed book_sequence: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_meta WHERE name = 'schema_version'`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_meta (name, value) VALUES ('schema_version', ?)`,
		fmt.Sprint(schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}
