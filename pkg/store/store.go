// Package store persists the assistant's durable state in a single sqlite
// database: conversation handles per user, per-product lead times, the
// daily-rotating assistant cache, the chat transcript and captured tickets.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultHistorySize = 10

// Store wraps the sqlite database. Access goes through raw SQL so the schema
// stays explicit and portable.
type Store struct {
	db *gorm.DB
	mu sync.RWMutex

	// HistorySize caps the transcript kept per user.
	HistorySize int
}

func Open(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	schemaSQL := `
	CREATE TABLE IF NOT EXISTS conversations (
		user_id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS lead_times (
		product TEXT PRIMARY KEY,
		days REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS assistants (
		cache_key TEXT PRIMARY KEY,
		assistant_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		raw_text TEXT NOT NULL,
		total REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ticket_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id TEXT NOT NULL REFERENCES tickets(id),
		product TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, id);
	CREATE INDEX IF NOT EXISTS idx_ticket_lines_ticket ON ticket_lines(ticket_id);
	`

	if err := db.Exec(schemaSQL).Error; err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, HistorySize: defaultHistorySize}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- conversations ----------------------------------------------------------

// GetOrCreateThread returns the stored conversation handle for the user, or
// obtains a new one via create and persists it. When persistence fails the
// fresh handle is still returned so the current turn can proceed; the mapping
// is simply lost on restart.
func (s *Store) GetOrCreateThread(ctx context.Context, userID string, create func(context.Context) (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var threadID string
	row := s.db.WithContext(ctx).Raw(
		`SELECT thread_id FROM conversations WHERE user_id = ?`, userID,
	).Row()
	if err := row.Scan(&threadID); err == nil && threadID != "" {
		return threadID, nil
	}

	threadID, err := create(ctx)
	if err != nil {
		return "", fmt.Errorf("create conversation for %s: %w", userID, err)
	}

	insert := `
		INSERT INTO conversations (user_id, thread_id, created_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(user_id) DO NOTHING`
	if err := s.db.WithContext(ctx).Exec(insert, userID, threadID).Error; err != nil {
		log.Error().Err(err).Str("user_id", userID).
			Msg("conversation handle not persisted, continuing in memory")
	}
	return threadID, nil
}

// PurgeConversations drops sessions older than the cutoff and returns the
// number removed. Nothing schedules this automatically; callers own the
// lifecycle policy.
func (s *Store) PurgeConversations(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.WithContext(ctx).Exec(
		`DELETE FROM conversations WHERE created_at < ?`, olderThan.UTC(),
	)
	if res.Error != nil {
		return 0, fmt.Errorf("purge conversations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// --- lead times -------------------------------------------------------------

func (s *Store) GetLeadTime(ctx context.Context, product string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var days float64
	row := s.db.WithContext(ctx).Raw(
		`SELECT days FROM lead_times WHERE product = ?`, product,
	).Row()
	if err := row.Scan(&days); err != nil {
		return 0, false, nil
	}
	return days, true, nil
}

// SetLeadTime upserts the lead time for a product, last write wins.
func (s *Store) SetLeadTime(ctx context.Context, product string, days float64) error {
	if product == "" {
		return fmt.Errorf("product name must not be empty")
	}
	if days < 0 {
		return fmt.Errorf("lead time must be a non-negative number of days")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	upsert := `
		INSERT INTO lead_times (product, days, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(product) DO UPDATE SET days = excluded.days, updated_at = datetime('now')`
	if err := s.db.WithContext(ctx).Exec(upsert, product, days).Error; err != nil {
		return fmt.Errorf("save lead time for %s: %w", product, err)
	}
	return nil
}

// --- assistant cache --------------------------------------------------------

// GetOrCreateAssistant memoizes one assistant id per cache key (the current
// date, so definitions rotate daily).
func (s *Store) GetOrCreateAssistant(ctx context.Context, cacheKey string, create func(context.Context) (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var assistantID string
	row := s.db.WithContext(ctx).Raw(
		`SELECT assistant_id FROM assistants WHERE cache_key = ?`, cacheKey,
	).Row()
	if err := row.Scan(&assistantID); err == nil && assistantID != "" {
		return assistantID, nil
	}

	assistantID, err := create(ctx)
	if err != nil {
		return "", fmt.Errorf("create assistant for key %s: %w", cacheKey, err)
	}

	insert := `
		INSERT INTO assistants (cache_key, assistant_id, created_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(cache_key) DO NOTHING`
	if err := s.db.WithContext(ctx).Exec(insert, cacheKey, assistantID).Error; err != nil {
		log.Error().Err(err).Str("cache_key", cacheKey).
			Msg("assistant id not persisted, continuing in memory")
	}
	return assistantID, nil
}
