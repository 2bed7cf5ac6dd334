package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"sweeper/internal/aria2"
	"sweeper/internal/config"
	"sweeper/internal/extract"
	"sweeper/internal/history"
	"sweeper/internal/logging"
	"sweeper/internal/notify"
	"sweeper/internal/processor"
)

// Connection is the download-manager session the daemon consumes: the RPC
// surface plus the push event stream.
type Connection interface {
	processor.Source
	Events() <-chan string
	Close() error
}

// Dialer establishes a Connection; swapped out in tests.
type Dialer func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Connection, error)

// Daemon owns the connect/process/reconnect lifecycle and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	lockPath string
	lock     *flock.Flock
	dial     Dialer
}

// Option configures the daemon.
type Option func(*Daemon)

// WithDialer overrides how the daemon reaches the download manager.
func WithDialer(dial Dialer) Option {
	return func(d *Daemon) {
		if dial != nil {
			d.dial = dial
		}
	}
}

// New constructs a daemon. The history store may be nil.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "sweeperd.lock")
	daemon := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		dial:     dialAria2,
	}
	for _, opt := range opts {
		opt(daemon)
	}
	return daemon, nil
}

func dialAria2(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Connection, error) {
	return aria2.Dial(ctx, cfg, logger)
}

// Run blocks until ctx is cancelled, reconnecting to the download manager
// whenever the connection drops.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another sweeper daemon instance is already running")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	d.logger.Info("daemon started", logging.String("lock", d.lockPath))

	extractor := extract.New(d.cfg, d.logger)
	notifier := notify.NewService(d.cfg, d.logger)

	for {
		if err := d.runSession(ctx, extractor, notifier); err != nil && ctx.Err() == nil {
			d.logger.Warn("session ended", logging.Error(err))
		}
		if ctx.Err() != nil {
			d.logger.Info("daemon stopped")
			return ctx.Err()
		}

		interval := time.Duration(d.cfg.Aria2.ReconnectInterval) * time.Second
		if interval <= 0 {
			interval = 5 * time.Second
		}
		d.logger.Info("reconnecting", logging.Duration("after", interval))
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			d.logger.Info("daemon stopped")
			return ctx.Err()
		}
	}
}

// runSession drives one connection: replay completions missed while
// disconnected, then follow the live event stream until it closes.
func (d *Daemon) runSession(ctx context.Context, extractor processor.Extractor, notifier notify.Service) error {
	conn, err := d.dial(ctx, d.cfg, d.logger)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	proc := processor.New(d.cfg, conn, extractor, notifier, d.store, d.logger)

	events := make(chan string, d.cfg.Workflow.EventBuffer)
	go func() {
		defer close(events)
		d.replayCompleted(ctx, conn, events)
		for gid := range conn.Events() {
			select {
			case events <- gid:
			case <-ctx.Done():
				return
			}
		}
	}()

	return proc.Run(ctx, events)
}

// replayCompleted queues downloads that finished while no daemon was
// listening.
func (d *Daemon) replayCompleted(ctx context.Context, conn Connection, events chan<- string) {
	downloads, err := conn.Downloads(ctx)
	if err != nil {
		d.logger.Warn("startup sweep failed", logging.Error(err))
		return
	}
	for _, download := range downloads {
		if !download.Complete() {
			continue
		}
		select {
		case events <- download.GID:
		case <-ctx.Done():
			return
		}
	}
}
