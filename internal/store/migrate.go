package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// schemaVersion is the current expected schema version.
const schemaVersion = 2

type migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations is the ordered list of schema migrations, each applied once and
// tracked in schema_version.
var migrations = []migration{
	{
		Version:     1,
		Description: "base schema: group_members, exchange_rates, bot_state",
		SQL: `
		CREATE TABLE IF NOT EXISTS group_members (
			chat_id     INTEGER NOT NULL,
			user_id     INTEGER NOT NULL,
			username    TEXT NOT NULL DEFAULT '',
			echo        INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (chat_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS exchange_rates (
			id          INTEGER PRIMARY KEY CHECK (id = 1),
			eur         REAL NOT NULL,
			usd         REAL NOT NULL,
			gbp         REAL NOT NULL,
			lira        REAL NOT NULL,
			updated_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_state (
			key         TEXT PRIMARY KEY,
			value       TEXT NOT NULL
		);
		`,
	},
	{
		Version:     2,
		Description: "v2: member join time for stable /all ordering",
		SQL: `
		ALTER TABLE group_members ADD COLUMN joined_at INTEGER NOT NULL DEFAULT 0;
		CREATE INDEX IF NOT EXISTS idx_group_members_chat ON group_members(chat_id, joined_at);
		`,
	},
}

// RunMigrations applies all pending schema migrations.
func RunMigrations(db *sql.DB, logger *slog.Logger) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version     INTEGER PRIMARY KEY,
			description TEXT,
			applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		logger.Info("applying migration", "version", m.Version, "description", m.Description)

		if err := applyInTx(db, m); err != nil {
			// A column added by hand or by an interrupted run makes the batch
			// fail; fall back to statement by statement.
			logger.Warn("migration batch failed, retrying per statement", "version", m.Version, "err", err)
			if err := applyStatements(db, m, logger); err != nil {
				return err
			}
		}
		logger.Info("migration applied", "version", m.Version)
	}
	return nil
}

func applyInTx(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration v%d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return err
	}
	if err := recordVersion(tx, m); err != nil {
		return err
	}
	return tx.Commit()
}

// applyStatements runs each statement on its own, skipping the ones that
// were already applied.
func applyStatements(db *sql.DB, m migration, logger *slog.Logger) error {
	for _, stmt := range strings.Split(m.SQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			msg := strings.ToLower(err.Error())
			if strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists") {
				logger.Debug("migration statement skipped (already applied)", "stmt_prefix", truncate(stmt, 60))
				continue
			}
			return fmt.Errorf("migration v%d statement failed: %w\nSQL: %s", m.Version, err, truncate(stmt, 200))
		}
	}
	return recordVersion(db, m)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func recordVersion(e execer, m migration) error {
	if _, err := e.Exec(
		"INSERT OR REPLACE INTO schema_version (version, description) VALUES (?, ?)",
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("record migration v%d: %w", m.Version, err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
func SchemaVersion(db *sql.DB) (int, error) {
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&name)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query schema_version table: %w", err)
	}

	var version int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("query schema version: %w", err)
	}
	return version, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
