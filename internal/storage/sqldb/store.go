package sqldb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// DefaultListLimit caps ListEvents when no limit is given.
const DefaultListLimit = 100

// Store is a SQL implementation of ports.EventStore.
type Store struct {
	db *sqlx.DB
}

// Ensure Store implements EventStore
var _ ports.EventStore = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // Driver name: sqlite
	DSN    string // Data source name / connection string
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
}

// New creates a new SQL store with the specified configuration.
func New(cfg Config) (*Store, error) {
	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case "sqlite", "sqlite3":
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range sqlitePragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLite creates a new SQLite store
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

// DB returns the underlying sqlx.DB for advanced operations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS hook_events (
id INTEGER PRIMARY KEY AUTOINCREMENT,
kind TEXT NOT NULL,
hook TEXT NOT NULL DEFAULT '',
handler TEXT NOT NULL DEFAULT '',
operation_id TEXT NOT NULL DEFAULT '',
attempt INTEGER NOT NULL DEFAULT 0,
path TEXT NOT NULL DEFAULT '',
method TEXT NOT NULL DEFAULT '',
reason TEXT NOT NULL DEFAULT '',
delay_ns INTEGER NOT NULL DEFAULT 0,
error TEXT NOT NULL DEFAULT '',
created_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_hook_events_operation ON hook_events(operation_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_hook_events_kind ON hook_events(kind, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AppendEvent inserts rec and sets its ID.
func (s *Store) AppendEvent(ctx context.Context, rec *ports.EventRecord) error {
	if rec == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	res, err := s.db.NamedExecContext(ctx, `INSERT INTO hook_events (
kind, hook, handler, operation_id, attempt, path, method, reason, delay_ns, error, created_at
) VALUES (
:kind, :hook, :handler, :operation_id, :attempt, :path, :method, :reason, :delay_ns, :error, :created_at
)`, rec)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// ListEvents returns events in insertion order, optionally filtered by
// operation and kind.
func (s *Store) ListEvents(ctx context.Context, opts ports.ListOptions) ([]*ports.EventRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, kind, hook, handler, operation_id, attempt, path, method, reason, delay_ns, error, created_at
		FROM hook_events WHERE 1=1`
	var args []any
	if opts.OperationID != "" {
		query += ` AND operation_id = ?`
		args = append(args, opts.OperationID)
	}
	if opts.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, opts.Kind)
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, limit)

	events := []*ports.EventRecord{}
	if err := s.db.SelectContext(ctx, &events, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
