// Package store persists group members, exchange rates and the update
// cursor in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"grouphelper/internal/domain"
)

const lastUpdateKey = "last_update_id"

// SQLiteStore implements the member, rate and update-log stores.
type SQLiteStore struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ domain.MemberStore = (*SQLiteStore)(nil)
	_ domain.RateStore   = (*SQLiteStore)(nil)
	_ domain.UpdateLog   = (*SQLiteStore)(nil)
)

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Version returns the applied schema version.
func (s *SQLiteStore) Version() (int, error) { return SchemaVersion(s.db) }

// Backup writes a consistent snapshot of the database to dst, which must not
// exist yet. It is safe while the bot is running.
func (s *SQLiteStore) Backup(ctx context.Context, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("backup target %s already exists", dst)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("backup database: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.ExecContext(ctx, query, args...)
}

// AddGroupMember upserts the member and turns mentions on.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, m domain.GroupMember) error {
	q := s.sb.Insert("group_members").
		Columns("chat_id", "user_id", "username", "echo", "joined_at").
		Values(m.ChatID, m.UserID, m.Username, true, s.now().Unix()).
		Suffix("ON CONFLICT(chat_id, user_id) DO UPDATE SET username = excluded.username, echo = 1")
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveGroupMember turns mentions off but keeps the row.
func (s *SQLiteStore) RemoveGroupMember(ctx context.Context, chatID, userID int64) error {
	q := s.sb.Update("group_members").
		Set("echo", false).
		Where(sq.Eq{"chat_id": chatID, "user_id": userID})
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}

// GroupMembers returns every known member of the chat in join order.
func (s *SQLiteStore) GroupMembers(ctx context.Context, chatID int64) ([]domain.GroupMember, error) {
	query, args, err := s.sb.Select("chat_id", "user_id", "username", "echo").
		From("group_members").
		Where(sq.Eq{"chat_id": chatID}).
		OrderBy("joined_at", "user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.ChatID, &m.UserID, &m.Username, &m.Echo); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ExchangeRates returns the stored rates, or nil when none were saved yet.
func (s *SQLiteStore) ExchangeRates(ctx context.Context) (*domain.ExchangeRates, error) {
	query, args, err := s.sb.Select("eur", "usd", "gbp", "lira", "updated_at").
		From("exchange_rates").
		Where(sq.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var r domain.ExchangeRates
	var updated int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&r.EUR, &r.USD, &r.GBP, &r.Lira, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query exchange rates: %w", err)
	}
	r.UpdatedAt = time.Unix(updated, 0)
	return &r, nil
}

func (s *SQLiteStore) SaveExchangeRates(ctx context.Context, r domain.ExchangeRates) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = s.now()
	}
	q := s.sb.Insert("exchange_rates").
		Options("OR REPLACE").
		Columns("id", "eur", "usd", "gbp", "lira", "updated_at").
		Values(1, r.EUR, r.USD, r.GBP, r.Lira, r.UpdatedAt.Unix())
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("save exchange rates: %w", err)
	}
	return nil
}

// LastUpdateID returns the last handled Telegram update id, 0 if none.
func (s *SQLiteStore) LastUpdateID(ctx context.Context) (int, error) {
	query, args, err := s.sb.Select("value").From("bot_state").Where(sq.Eq{"key": lastUpdateKey}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query last update id: %w", err)
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("corrupt last update id %q: %w", value, err)
	}
	return id, nil
}

func (s *SQLiteStore) SaveLastUpdateID(ctx context.Context, id int) error {
	q := s.sb.Insert("bot_state").
		Options("OR REPLACE").
		Columns("key", "value").
		Values(lastUpdateKey, strconv.Itoa(id))
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("save last update id: %w", err)
	}
	return nil
}
