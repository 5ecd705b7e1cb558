package sprint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"sprintgym/internal/logging"
)

// MetaLearning is one harvested lesson from a retrospective.
type MetaLearning struct {
	Sprint    int       `json:"sprint"`
	Category  string    `json:"category"`
	Lesson    string    `json:"lesson"`
	CreatedAt time.Time `json:"created_at"`
}

// Database persists cards and meta-learnings for one episode. The mock
// backend keeps everything in memory; the sqlite backend writes to disk.
type Database interface {
	Initialize(ctx context.Context) error
	SaveCard(ctx context.Context, card Card) error
	Cards(ctx context.Context) ([]Card, error)
	ReplaceCards(ctx context.Context, cards []Card) error
	AddMetaLearning(ctx context.Context, ml MetaLearning) error
	MetaLearnings(ctx context.Context) ([]MetaLearning, error)
	Close() error
}

// OpenDatabase picks a backend from the URL: "mock://" yields the in-memory
// store, anything else is treated as a sqlite path.
func OpenDatabase(url string) (Database, error) {
	if url == "" || strings.HasPrefix(url, "mock://") {
		return NewMockDB(), nil
	}
	path := strings.TrimPrefix(url, "sqlite://")
	return NewSQLiteStore(path)
}

// MockDB is the in-memory database used by episodes. Initialize completes
// asynchronously to mirror the real store's startup, but is safe to race
// with first use.
type MockDB struct {
	mu            sync.Mutex
	initialized   bool
	cards         []Card
	metaLearnings []MetaLearning
}

// NewMockDB returns an empty in-memory store.
func NewMockDB() *MockDB { return &MockDB{} }

func (m *MockDB) Initialize(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.mu.Lock()
		m.initialized = true
		m.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockDB) SaveCard(ctx context.Context, card Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cards {
		if m.cards[i].ID == card.ID {
			m.cards[i] = card
			return nil
		}
	}
	m.cards = append(m.cards, card)
	return nil
}

func (m *MockDB) Cards(ctx context.Context) ([]Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Card(nil), m.cards...), nil
}

func (m *MockDB) ReplaceCards(ctx context.Context, cards []Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = append([]Card(nil), cards...)
	return nil
}

func (m *MockDB) AddMetaLearning(ctx context.Context, ml MetaLearning) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metaLearnings = append(m.metaLearnings, ml)
	return nil
}

func (m *MockDB) MetaLearnings(ctx context.Context) ([]MetaLearning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MetaLearning(nil), m.metaLearnings...), nil
}

func (m *MockDB) Close() error { return nil }

// SQLiteStore persists episode state in a local sqlite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database file.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store %s: %w", path, err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS meta_learnings (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		sprint INTEGER NOT NULL,
		category TEXT NOT NULL,
		lesson TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	logging.Store("sqlite store ready at %s", s.path)
	return nil
}

func (s *SQLiteStore) SaveCard(ctx context.Context, card Card) error {
	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to serialize card %s: %w", card.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cards (id, payload) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		card.ID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save card %s: %w", card.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Cards(ctx context.Context) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var card Card
		if err := json.Unmarshal([]byte(payload), &card); err != nil {
			return nil, fmt.Errorf("corrupt card payload: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (s *SQLiteStore) ReplaceCards(ctx context.Context, cards []Card) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards`); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}
	for _, card := range cards {
		payload, err := json.Marshal(card)
		if err != nil {
			return fmt.Errorf("failed to serialize card %s: %w", card.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cards (id, payload) VALUES (?, ?)`, card.ID, string(payload)); err != nil {
			return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) AddMetaLearning(ctx context.Context, ml MetaLearning) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta_learnings (sprint, category, lesson, created_at) VALUES (?, ?, ?, ?)`,
		ml.Sprint, ml.Category, ml.Lesson, ml.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert meta-learning: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MetaLearnings(ctx context.Context) ([]MetaLearning, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sprint, category, lesson, created_at FROM meta_learnings ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query meta-learnings: %w", err)
	}
	defer rows.Close()

	var out []MetaLearning
	for rows.Next() {
		var ml MetaLearning
		var created string
		if err := rows.Scan(&ml.Sprint, &ml.Category, &ml.Lesson, &created); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			ml.CreatedAt = t
		}
		out = append(out, ml)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
