package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crickmate/coach/internal/domain"
	"github.com/crickmate/coach/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	registerAttempts  = 3
	registerBaseDelay = 100 * time.Millisecond
)

var _ Repository = (*SQLiteStore)(nil)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL for concurrent readers; immediate transactions so writers queue on
	// busy_timeout instead of failing on lock upgrade.
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, log: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		age INTEGER NOT NULL,
		height_cm INTEGER NOT NULL,
		weight_kg INTEGER NOT NULL,
		skill_level TEXT NOT NULL,
		playing_role TEXT NOT NULL,
		weekly_days INTEGER,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RegisterUser inserts p and assigns the next sequential id (USER0001, ...).
// Lock contention is retried with exponential backoff.
func (s *SQLiteStore) RegisterUser(ctx context.Context, p *domain.Profile) (string, error) {
	var userID string
	err := shared.RetryOnConflict(ctx, registerAttempts, registerBaseDelay, func() error {
		id, err := s.registerOnce(ctx, p)
		if err != nil && shared.IsSQLiteConflictError(err) {
			s.log.Debug("RegisterUser hit SQLITE_BUSY, retrying", "error", err)
		}
		userID = id
		return err
	})
	if err != nil {
		return "", fmt.Errorf("register user: %w", err)
	}
	s.log.Info("User registered", "user_id", userID, "role", p.Role())
	return userID, nil
}

func (s *SQLiteStore) registerOnce(ctx context.Context, p *domain.Profile) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Warn("failed to roll back registration", "error", rbErr)
		}
	}()

	var weekly any
	if p.WeeklyDays != nil {
		weekly = *p.WeeklyDays
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO users (name, age, height_cm, weight_kg, skill_level, playing_role, weekly_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Age, p.HeightCM, p.WeightKG,
		strings.ToLower(p.SkillLevel), p.Role(), weekly, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}

	userID := fmt.Sprintf("USER%04d", seq)
	if _, err := tx.ExecContext(ctx, `UPDATE users SET user_id = ? WHERE seq = ?`, userID, seq); err != nil {
		return "", fmt.Errorf("assign user id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return userID, nil
}

// GetUser retrieves a profile by its user id.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT user_id, name, age, height_cm, weight_kg,
		       skill_level, playing_role, weekly_days, created_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var p domain.Profile
	var weekly sql.NullInt64
	var createdAt int64

	err := row.Scan(
		&p.UserID, &p.Name, &p.Age, &p.HeightCM, &p.WeightKG,
		&p.SkillLevel, &p.PlayingRole, &weekly, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	if weekly.Valid {
		days := int(weekly.Int64)
		p.WeeklyDays = &days
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
