package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"manifestrecon/internal/config"
	"manifestrecon/internal/logging"
	"manifestrecon/internal/metrics"
	"manifestrecon/internal/mirror"
	"manifestrecon/internal/receiving"
	"manifestrecon/internal/store"
)

type commandContext struct {
	configFlag   *string
	operatorFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, operatorFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		operatorFlag: operatorFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// JSONMode reports whether --json was given.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// operator returns --operator, leaving the service to apply the default.
func (c *commandContext) operator() string {
	if c.operatorFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.operatorFlag)
}

// app is the per-invocation wiring of store, service and mirror.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Registry
	store   *store.Store
	service *receiving.Service
	worker  *mirror.Worker
}

// mirrorFlushTimeout bounds how long a one-shot command waits for its mirror
// rows to be delivered.
const mirrorFlushTimeout = 30 * time.Second

// withApp opens the store and runs fn. Mirror rows published by fn are
// delivered before withApp returns.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app) error) error {
	a, err := c.openApp()
	if err != nil {
		return err
	}
	defer a.store.Close()

	var done chan struct{}
	if a.worker != nil {
		done = make(chan struct{})
		runCtx, cancel := context.WithCancel(context.WithoutCancel(cmd.Context()))
		defer cancel()
		go func() {
			defer close(done)
			_ = a.worker.Run(runCtx)
		}()
	}

	fnErr := fn(a)

	if a.worker != nil {
		a.worker.Close()
		select {
		case <-done:
		case <-time.After(mirrorFlushTimeout):
			a.logger.Warn("mirror rows not delivered before exit",
				logging.Int("pending", a.worker.Pending()))
		}
	}
	return fnErr
}

func (c *commandContext) openApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	reg := metrics.New()
	st, err := store.Open(cfg, store.WithLogger(logger), store.WithObserver(reg))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	publisher, worker, err := mirror.New(cfg, logger, reg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init mirror: %w", err)
	}
	svc := receiving.NewService(st,
		receiving.WithLogger(logger),
		receiving.WithRecorder(reg),
		receiving.WithPublisher(publisher),
		receiving.WithDefaultOperator(cfg.Receiving.DefaultOperator))
	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: reg,
		store:   st,
		service: svc,
		worker:  worker,
	}, nil
}

// resolveManifest accepts a manifest number or a numeric ID. Numbers win
// because both are digit strings.
func resolveManifest(ctx context.Context, st *store.Store, ref string) (*store.Manifest, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("manifest number or id is required")
	}
	m, err := st.GetManifestByNumber(ctx, ref)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	id, convErr := strconv.ParseInt(ref, 10, 64)
	if convErr != nil || id <= 0 {
		return nil, fmt.Errorf("manifest %s: %w", ref, store.ErrNotFound)
	}
	m, err = st.GetManifest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", ref, err)
	}
	return m, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
