// Package storage persists announcement history, reminders and speech
// opt-ins in a single sqlite database file.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mealbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open initializes the sqlite store at cfg.Path, creating parent directories
// and applying migrations.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) SeenRecipe(ctx context.Context, key string) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrClosed
	}
	if key == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM recipe_history WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) MarkRecipeSeen(ctx context.Context, key, title string) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if key == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipe_history(key, title, seen_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO NOTHING`,
		key, nullStr(title), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) AddReminder(ctx context.Context, r Reminder) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrClosed
	}
	switch r.Kind {
	case KindMedicine, KindFood, KindOther:
	default:
		return 0, fmt.Errorf("invalid reminder kind %q", r.Kind)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(user_id, user_name, chat_id, thread_id, kind, time, note, private, timezone, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		r.UserID, nullStr(r.UserName), r.ChatID, r.ThreadID,
		r.Kind, r.TimeHHMM, nullStr(r.Note), boolInt(r.Private), r.Timezone,
		r.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) DeleteReminder(ctx context.Context, id, userID int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrClosed
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *sqliteStore) ListReminders(ctx context.Context, userID int64) ([]Reminder, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	return s.queryReminders(ctx,
		`SELECT id, user_id, user_name, chat_id, thread_id, kind, time, note, private, timezone, created_at
		 FROM reminders WHERE user_id = ? ORDER BY time, id`, userID)
}

func (s *sqliteStore) DistinctTimezones(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT timezone FROM reminders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var tz string
		if err := rows.Scan(&tz); err != nil {
			return nil, err
		}
		out = append(out, tz)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DueReminders(ctx context.Context, tz, hhmm string) ([]Reminder, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	return s.queryReminders(ctx,
		`SELECT id, user_id, user_name, chat_id, thread_id, kind, time, note, private, timezone, created_at
		 FROM reminders WHERE timezone = ? AND time = ? ORDER BY id`, tz, hhmm)
}

func (s *sqliteStore) queryReminders(ctx context.Context, q string, args ...any) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var (
			r         Reminder
			userName  sql.NullString
			note      sql.NullString
			private   int
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &userName, &r.ChatID, &r.ThreadID,
			&r.Kind, &r.TimeHHMM, &note, &private, &r.Timezone, &createdAt); err != nil {
			return nil, err
		}
		r.UserName = userName.String
		r.Note = note.String
		r.Private = private != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) OptInSpeech(ctx context.Context, userID, chatID int64) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO speech_optins(user_id, chat_id, created_at) VALUES(?,?,?)
		 ON CONFLICT(user_id, chat_id) DO NOTHING`,
		userID, chatID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) OptOutSpeech(ctx context.Context, userID, chatID int64) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM speech_optins WHERE user_id = ? AND chat_id = ?`, userID, chatID)
	return err
}

func (s *sqliteStore) SpeechOptedIn(ctx context.Context, userID, chatID int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrClosed
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM speech_optins WHERE user_id = ? AND chat_id = ?`,
		userID, chatID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
