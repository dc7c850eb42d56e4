package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"manifestrecon/internal/config"
	"manifestrecon/internal/inbox"
	"manifestrecon/internal/logging"
	"manifestrecon/internal/metrics"
	"manifestrecon/internal/mirror"
)

// ErrAlreadyRunning reports that another watch process holds the lock.
var ErrAlreadyRunning = errors.New("another manifestrecon watch instance is already running")

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	watcher *inbox.Watcher
	worker  *mirror.Worker
	metrics *metricsServer

	lockPath  string
	lock      *flock.Flock
	sessionID string

	mu           sync.Mutex
	running      atomic.Bool
	cancel       context.CancelFunc
	cancelMirror context.CancelFunc
	mirrorDone   chan struct{}
	wg           sync.WaitGroup
}

// mirrorDrainTimeout bounds how long Stop waits for queued mirror rows.
const mirrorDrainTimeout = 30 * time.Second

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	SessionID     string
	LockFilePath  string
	InboxDir      string
	MirrorEnabled bool
	MirrorPending int
	MetricsAddr   string
}

// New constructs a daemon. watcher is required; worker and reg may be nil.
func New(cfg *config.Config, watcher *inbox.Watcher, worker *mirror.Worker, reg *metrics.Registry, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || watcher == nil {
		return nil, errors.New("daemon requires config and inbox watcher")
	}
	sessionID := uuid.NewString()
	logger = logging.NewComponentLogger(logger, "daemon").With(logging.String("session_id", sessionID))
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		watcher:   watcher,
		worker:    worker,
		metrics:   newMetricsServer(cfg.Metrics.Listen, reg, logger),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		sessionID: sessionID,
	}, nil
}

// Start acquires the lock and launches the inbox watcher, the mirror worker
// and the metrics endpoint.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.metrics.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	if d.worker != nil {
		// The mirror outlives runCtx so Stop can drain queued rows.
		mirrorCtx, cancelMirror := context.WithCancel(context.WithoutCancel(ctx))
		d.cancelMirror = cancelMirror
		d.mirrorDone = make(chan struct{})
		go func() {
			defer close(d.mirrorDone)
			_ = d.worker.Run(mirrorCtx)
		}()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.watcher.Run(runCtx); err != nil {
			logging.ErrorWithContext(d.logger, "inbox watcher stopped", "inbox_watcher_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.inbox_dir permissions and restart watch"),
				logging.String(logging.FieldImpact, "new manifest documents are not imported"))
		}
	}()

	d.running.Store(true)
	d.logger.Info("manifestrecon watch started",
		logging.String("lock", d.lockPath),
		logging.String("inbox", d.watcher.Dir()),
		logging.Bool("mirror", d.worker != nil))
	return nil
}

// Stop stops background processing, drains the mirror queue and releases the
// lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if d.worker != nil {
		d.worker.Close()
		select {
		case <-d.mirrorDone:
		case <-time.After(mirrorDrainTimeout):
			d.logger.Warn("mirror queue not drained before shutdown",
				logging.Int("pending", d.worker.Pending()))
		}
		d.cancelMirror()
		<-d.mirrorDone
	}
	d.metrics.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release watch lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("manifestrecon watch stopped")
}

// Status reports the daemon state.
func (d *Daemon) Status() Status {
	st := Status{
		Running:       d.running.Load(),
		SessionID:     d.sessionID,
		LockFilePath:  d.lockPath,
		InboxDir:      d.watcher.Dir(),
		MirrorEnabled: d.worker != nil,
		MetricsAddr:   d.metrics.addr(),
	}
	if d.worker != nil {
		st.MirrorPending = d.worker.Pending()
	}
	return st
}
