package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"manifestrecon/internal/config"
	"manifestrecon/internal/logging"
)

// Observer receives persistence events for metrics.
type Observer interface {
	StoreRetry()
	StoreContention()
	StoreWrite(time.Duration)
}

type noopObserver struct{}

func (noopObserver) StoreRetry()              {}
func (noopObserver) StoreContention()         {}
func (noopObserver) StoreWrite(time.Duration) {}

// Store manages manifest persistence backed by SQLite.
type Store struct {
	db       *sqlx.DB
	path     string
	writeMu  sync.Mutex
	policy   RetryPolicy
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Store at Open.
type Option func(*Store)

// WithRetryPolicy replaces the retry policy derived from config.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *Store) { s.policy = policy }
}

// WithObserver routes retry and write timing events to o.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open initializes or connects to the manifest database. Calling it against
// an existing database only verifies the schema version.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	sqlDB, err := sql.Open("sqlite", buildDSN(dbPath, cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// sqlx has no bind type registered for the modernc driver name.
	db := sqlx.NewDb(sqlDB, "sqlite3")

	policy := DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Store.RetryAttempts
	policy.InitialBackoff = cfg.RetryInitialBackoff()

	store := &Store{
		db:       db,
		path:     dbPath,
		policy:   policy,
		observer: noopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	store.logger = logging.NewComponentLogger(store.logger, "store")

	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// buildDSN applies pragmas per connection so every pooled connection gets them.
func buildDSN(path string, cfg *config.Config) string {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout("+strconv.Itoa(cfg.Store.BusyTimeoutMS)+")")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Add("_pragma", "cache_size(-"+strconv.Itoa(cfg.Store.CacheSizeKiB)+")")
	params.Set("_txlock", "immediate")
	return "file:" + path + "?" + params.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Tx is a write transaction handed to Store.Write callbacks.
type Tx struct {
	tx  *sqlx.Tx
	ctx context.Context
	now time.Time
}

// Now returns the timestamp shared by every statement in the transaction.
func (t *Tx) Now() time.Time { return t.now }

// Write serializes fn behind the process-wide write mutex and runs it inside
// one transaction, retrying the whole transaction on contention.
func (s *Store) Write(ctx context.Context, fn func(*Tx) error) error {
	ctx = ensureContext(ctx)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	started := time.Now()
	err := s.policy.Do(ctx, func() error {
		return s.runTx(ctx, fn)
	}, s.onRetry)
	s.observer.StoreWrite(time.Since(started))
	if errors.Is(err, ErrContention) {
		s.observer.StoreContention()
		logging.ErrorWithContext(s.logger, "write gave up after retries", "store_contention",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "another process is holding the database; retry shortly"))
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&Tx{tx: sqlTx, ctx: ctx, now: s.now().UTC()}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, op func(ctx context.Context) error) error {
	ctx = ensureContext(ctx)
	return s.policy.Do(ctx, func() error { return op(ctx) }, s.onRetry)
}

func (s *Store) onRetry(attempt int, err error) {
	s.observer.StoreRetry()
	s.logger.Debug("database busy, retrying",
		logging.Int("attempt", attempt),
		logging.Duration("backoff", s.policy.Backoff(attempt)),
		logging.Error(err))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
