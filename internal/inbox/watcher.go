package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"manifestrecon/internal/config"
	"manifestrecon/internal/extract"
	"manifestrecon/internal/logging"
	"manifestrecon/internal/receiving"
)

const (
	processedDirName = "processed"
	failedDirName    = "failed"
	defaultSettle    = 750 * time.Millisecond
)

// DocumentReader turns a file into manifest text. *extract.Source satisfies it.
type DocumentReader interface {
	ReadDocument(ctx context.Context, path string) (string, error)
}

// TextExtractor parses manifest text. *extract.Extractor satisfies it.
type TextExtractor interface {
	Extract(text string) extract.Result
}

// Importer registers an extracted manifest. *receiving.Service satisfies it.
type Importer interface {
	Import(ctx context.Context, res extract.Result, sourceRef, operator string) (receiving.ImportResult, error)
}

// Watcher imports documents from an inbox directory.
type Watcher struct {
	dir       string
	reader    DocumentReader
	extractor TextExtractor
	importer  Importer
	logger    *slog.Logger
	operator  string
	settle    time.Duration
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithSettleDelay sets how long a file must stay quiet before it is imported.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithOperator names the operator recorded on imports.
func WithOperator(name string) Option {
	return func(w *Watcher) { w.operator = strings.TrimSpace(name) }
}

// NewWatcher builds a Watcher over dir.
func NewWatcher(dir string, reader DocumentReader, extractor TextExtractor, importer Importer, logger *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		dir:       dir,
		reader:    reader,
		extractor: extractor,
		importer:  importer,
		logger:    logging.NewComponentLogger(logger, "inbox"),
		settle:    defaultSettle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewFromConfig wires a Watcher for cfg.Paths.InboxDir.
func NewFromConfig(cfg *config.Config, importer Importer, logger *slog.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	ex, err := extract.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	source := extract.NewSource(cfg.Extraction.PdftotextBinary)
	return NewWatcher(cfg.Paths.InboxDir, source, ex, importer, logger,
		WithOperator(cfg.Receiving.DefaultOperator)), nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run processes documents already in the inbox, then imports new ones until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.ensureDirs(); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create inbox watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch inbox %s: %w", w.dir, err)
	}
	w.logger.Info("watching inbox", logging.String("dir", w.dir))

	w.ProcessExisting(ctx)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if filepath.Dir(event.Name) != filepath.Clean(w.dir) || !extract.Supported(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "inbox watcher error", "inbox_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some dropped documents may need a restart to be picked up"))
		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < w.settle {
					continue
				}
				delete(pending, path)
				if _, err := os.Stat(path); err != nil {
					continue
				}
				_, _ = w.ProcessFile(ctx, path)
			}
		}
	}
}

// ProcessExisting imports every supported document already in the inbox, in
// name order.
func (w *Watcher) ProcessExisting(ctx context.Context) int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logging.WarnWithContext(w.logger, "inbox scan failed", "inbox_scan_failed",
			logging.String("dir", w.dir),
			logging.Error(err))
		return 0
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && extract.Supported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		_, _ = w.ProcessFile(ctx, filepath.Join(w.dir, name))
	}
	return len(names)
}

// ProcessFile imports one document and moves it out of the inbox. The
// returned error is also recorded in the failed/ sidecar.
func (w *Watcher) ProcessFile(ctx context.Context, path string) (receiving.ImportResult, error) {
	if err := w.ensureDirs(); err != nil {
		return receiving.ImportResult{}, err
	}
	name := filepath.Base(path)
	logger := w.logger.With(logging.String("file", name))

	var warnings []string
	res, err := w.importDocument(ctx, path, &warnings)
	if err != nil {
		dest, moveErr := w.moveTo(path, failedDirName)
		if moveErr != nil {
			logger.Error("move failed document", logging.Error(moveErr))
		} else if noteErr := writeErrorNote(dest, err, warnings); noteErr != nil {
			logger.Error("write failure note", logging.Error(noteErr))
		}
		logging.ErrorWithContext(logger, "manifest import failed", "inbox_import_failed",
			logging.Error(err),
			logging.Int("warnings", len(warnings)),
			logging.String(logging.FieldErrorHint, "see the .err file next to the document in failed/"),
			logging.String(logging.FieldImpact, "manifest not registered"))
		return receiving.ImportResult{}, err
	}

	if _, moveErr := w.moveTo(path, processedDirName); moveErr != nil {
		logger.Error("move processed document", logging.Error(moveErr))
	}
	logger.Info("inbox document imported",
		logging.ManifestID(res.Manifest.ID),
		logging.String("number", res.Manifest.Number),
		logging.Int("volumes", len(res.Volumes)))
	return res, nil
}

func (w *Watcher) importDocument(ctx context.Context, path string, warnings *[]string) (receiving.ImportResult, error) {
	text, err := w.reader.ReadDocument(ctx, path)
	if err != nil {
		return receiving.ImportResult{}, err
	}
	extracted := w.extractor.Extract(text)
	*warnings = extracted.Warnings
	return w.importer.Import(ctx, extracted, filepath.Base(path), w.operator)
}

func (w *Watcher) ensureDirs() error {
	for _, dir := range []string{w.dir, filepath.Join(w.dir, processedDirName), filepath.Join(w.dir, failedDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create inbox directory %q: %w", dir, err)
		}
	}
	return nil
}

// moveTo renames path into the named subdirectory, adding a timestamp when a
// file with the same name is already there.
func (w *Watcher) moveTo(path, sub string) (string, error) {
	dest := filepath.Join(w.dir, sub, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(dest)
		dest = strings.TrimSuffix(dest, ext) + "-" + time.Now().Format("20060102T150405.000") + ext
	}
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", filepath.Base(path), sub, err)
	}
	return dest, nil
}

func writeErrorNote(docPath string, cause error, warnings []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "error: %v\n", cause)
	for _, warning := range warnings {
		fmt.Fprintf(&b, "warning: %s\n", warning)
	}
	return os.WriteFile(docPath+".err", []byte(b.String()), 0o644)
}
