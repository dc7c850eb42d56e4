package mirror

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"manifestrecon/internal/config"
	"manifestrecon/internal/logging"
)

// Recorder counts task outcomes; *metrics.Registry satisfies it.
type Recorder interface {
	MirrorTask(result string)
}

type noopRecorder struct{}

func (noopRecorder) MirrorTask(string) {}

// Task results reported to the Recorder.
const (
	resultOK      = "ok"
	resultFailed  = "failed"
	resultDropped = "dropped"
)

// Worker is the single consumer of the mirror queue.
type Worker struct {
	client   Upserter
	delay    time.Duration
	logger   *slog.Logger
	recorder Recorder

	mu     sync.Mutex
	queue  chan Row
	closed bool
}

// NewWorker builds a worker delivering through client.
func NewWorker(cfg *config.Config, client Upserter, logger *slog.Logger, recorder Recorder) *Worker {
	size := cfg.Mirror.QueueSize
	if size < 1 {
		size = 1
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Worker{
		client:   client,
		delay:    time.Duration(cfg.Mirror.TaskDelayMS) * time.Millisecond,
		logger:   logging.NewComponentLogger(logger, "mirror"),
		recorder: recorder,
		queue:    make(chan Row, size),
	}
}

// New returns the publisher for cfg: a Noop when the mirror is disabled,
// otherwise an HTTP-backed Worker the caller must Run.
func New(cfg *config.Config, logger *slog.Logger, recorder Recorder) (Publisher, *Worker, error) {
	if !cfg.Mirror.Enabled {
		return Noop{}, nil, nil
	}
	client, err := NewHTTPClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	w := NewWorker(cfg, client, logger, recorder)
	return w, w, nil
}

// Publish enqueues row without blocking. Rows published to a full or closed
// queue are dropped.
func (w *Worker) Publish(row Row) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.recorder.MirrorTask(resultDropped)
		return
	}
	select {
	case w.queue <- row:
	default:
		w.recorder.MirrorTask(resultDropped)
		logging.WarnWithContext(w.logger, "mirror queue full; row dropped", "mirror_queue_full",
			logging.String("row", row.Key()),
			logging.String(logging.FieldErrorHint, "raise mirror.queue_size or check the mirror endpoint"),
			logging.String(logging.FieldImpact, "mirror shows stale progress for this row"))
	}
}

// Close stops accepting rows. Run drains what is already queued and returns.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
}

// Pending returns the number of queued rows.
func (w *Worker) Pending() int { return len(w.queue) }

// Run processes rows until ctx is cancelled or the queue is closed and empty.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Debug("mirror worker started", logging.Duration("task_delay", w.delay))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case row, ok := <-w.queue:
			if !ok {
				return nil
			}
			w.process(ctx, row)
			if err := sleepContext(ctx, w.delay); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, row Row) {
	started := time.Now()
	if err := w.client.Upsert(ctx, row); err != nil {
		w.recorder.MirrorTask(resultFailed)
		logging.ErrorWithContext(w.logger, "mirror upsert failed", "mirror_upsert_failed",
			logging.String("row", row.Key()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check mirror.endpoint and mirror.api_token"))
		return
	}
	w.recorder.MirrorTask(resultOK)
	w.logger.Debug("mirror row delivered",
		logging.String("row", row.Key()),
		logging.Duration("elapsed", time.Since(started)))
}
