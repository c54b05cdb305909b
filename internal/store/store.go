// Package store persists the pairing session and metadata send times in a
// local SQLite database. The core loads it once at startup and writes
// incrementally; nothing here is shared across processes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nv4818/webtrack/internal/model"
)

var ErrNotFound = errors.New("not found")

const (
	keyClientID  = "client_id"
	keyAuthToken = "auth_token"
	keyEnabled   = "enabled"
)

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("chmod db path: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// LoadSession reads the persisted session. Missing keys fall back to an
// unpaired, enabled session with an empty client id; the caller assigns a
// client id on first run.
func (s *Store) LoadSession(ctx context.Context) (model.Session, error) {
	session := model.Session{Enabled: true}
	clientID, err := s.getSetting(ctx, keyClientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return model.Session{}, err
	}
	session.ClientID = clientID
	token, err := s.getSetting(ctx, keyAuthToken)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return model.Session{}, err
	}
	session.AuthToken = token
	enabled, err := s.getSetting(ctx, keyEnabled)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return model.Session{}, err
		}
	} else {
		session.Enabled = enabled == "1"
	}
	return session, nil
}

func (s *Store) SetClientID(ctx context.Context, clientID string) error {
	return s.setSetting(ctx, keyClientID, clientID)
}

func (s *Store) SetAuthToken(ctx context.Context, token string) error {
	return s.setSetting(ctx, keyAuthToken, token)
}

func (s *Store) SetEnabled(ctx context.Context, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	return s.setSetting(ctx, keyEnabled, value)
}

func (s *Store) getSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings(key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, ts(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// MetadataSentAt returns the last metadata send time for domain.
func (s *Store) MetadataSentAt(ctx context.Context, domain string) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT last_sent_at FROM metadata_sends WHERE domain = ?`, domain).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get metadata send %s: %w", domain, err)
	}
	return parseTS(raw)
}

func (s *Store) MarkMetadataSent(ctx context.Context, domain string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO metadata_sends(domain, last_sent_at) VALUES (?, ?)
ON CONFLICT(domain) DO UPDATE SET last_sent_at=excluded.last_sent_at`,
		domain, ts(at))
	if err != nil {
		return fmt.Errorf("mark metadata sent %s: %w", domain, err)
	}
	return nil
}

// LoadMetadataSentTimes loads the full domain -> last send time map.
func (s *Store) LoadMetadataSentTimes(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain, last_sent_at FROM metadata_sends`)
	if err != nil {
		return nil, fmt.Errorf("list metadata sends: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := map[string]time.Time{}
	for rows.Next() {
		var domain, raw string
		if err := rows.Scan(&domain, &raw); err != nil {
			return nil, fmt.Errorf("scan metadata send: %w", err)
		}
		at, err := parseTS(raw)
		if err != nil {
			return nil, err
		}
		out[domain] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata sends: %w", err)
	}
	return out, nil
}

// PruneMetadataSends removes records older than cutoff; they would be resent
// anyway and carry no other value.
func (s *Store) PruneMetadataSends(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM metadata_sends WHERE last_sent_at < ?`, ts(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune metadata sends: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune metadata sends: %w", err)
	}
	return n, nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}
