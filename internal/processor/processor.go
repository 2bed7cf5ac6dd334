package processor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sweeper/internal/aria2"
	"sweeper/internal/config"
	"sweeper/internal/history"
	"sweeper/internal/logging"
	"sweeper/internal/media"
	"sweeper/internal/notify"
	"sweeper/internal/services"
	"sweeper/internal/titlelock"
)

// Source is the download-manager surface the processor consumes.
type Source interface {
	TellStatus(ctx context.Context, gid string) (aria2.Download, error)
	Downloads(ctx context.Context) ([]aria2.Download, error)
	Forget(ctx context.Context, gid string) error
}

// Extractor unpacks one logical archive given its full part set.
type Extractor interface {
	Extract(ctx context.Context, sources []string, destDir string) (string, error)
}

// Processor consumes completion events, classifies content, drives
// extraction and the destination move, and hands off scan notifications.
// Tasks for distinct titles run in parallel; the title lock serializes
// repeats for the same release.
type Processor struct {
	cfg       *config.Config
	source    Source
	extractor Extractor
	notifier  notify.Service
	store     *history.Store
	locks     *titlelock.Manager
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// New assembles a processor. The history store may be nil; journaling is
// then disabled.
func New(cfg *config.Config, source Source, extractor Extractor, notifier notify.Service, store *history.Store, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:       cfg,
		source:    source,
		extractor: extractor,
		notifier:  notifier,
		store:     store,
		locks:     NewLocks(),
		logger:    logging.WithComponent(logger, "processor"),
	}
}

// NewLocks builds the lock manager used by the processor; exposed so tests
// can share one across instances.
func NewLocks() *titlelock.Manager { return titlelock.NewManager() }

// Run consumes gids from events until the channel closes or ctx is
// cancelled, spawning one task per event. It returns after all in-flight
// tasks finish or the shutdown grace period elapses.
func (p *Processor) Run(ctx context.Context, events <-chan string) error {
	for {
		select {
		case gid, ok := <-events:
			if !ok {
				return p.drain(ctx)
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.Handle(ctx, gid)
			}()
		case <-ctx.Done():
			return p.drain(ctx)
		}
	}
}

// drain waits for in-flight tasks, bounded by the configured grace period.
func (p *Processor) drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	grace := time.Duration(p.cfg.Workflow.ShutdownGrace) * time.Second
	if grace <= 0 {
		<-done
		return ctx.Err()
	}
	select {
	case <-done:
	case <-time.After(grace):
		p.logger.Warn("shutdown grace elapsed with tasks still running")
	}
	return ctx.Err()
}

// Handle processes one completion event synchronously. Fatal task failures
// are logged and journaled; they never propagate to other titles.
func (p *Processor) Handle(ctx context.Context, gid string) {
	// Shutdown must not abort filesystem mutations mid-flight; external
	// calls stay bounded by their own timeouts.
	taskCtx := context.WithoutCancel(ctx)
	taskCtx = services.WithGID(taskCtx, gid)
	taskCtx = services.WithRequestID(taskCtx, uuid.NewString())
	logger := logging.WithContext(taskCtx, p.logger)

	download, err := p.source.TellStatus(taskCtx, gid)
	if err != nil {
		if services.IsNotFound(err) {
			logger.Debug("event for unknown gid, already processed")
			return
		}
		logger.Error("query download failed", logging.Error(err))
		return
	}
	if !download.Complete() {
		logger.Debug("ignoring event for incomplete download",
			logging.String("status", download.Status))
		return
	}

	// Parts of one multi-part set share a title so their tasks serialize.
	title := media.Title(download.Name)
	taskCtx = services.WithTitle(taskCtx, title)
	logger = logging.WithContext(taskCtx, p.logger)

	handle, err := p.locks.Acquire(ctx, title)
	if err != nil {
		logger.Warn("abandoned waiting for title lock", logging.Error(err))
		return
	}
	defer handle.Release()

	// A predecessor holding the lock may have consumed this download.
	download, err = p.source.TellStatus(taskCtx, gid)
	if err != nil {
		if !services.IsNotFound(err) {
			logger.Error("re-query download failed", logging.Error(err))
		}
		return
	}

	record := p.journalStart(taskCtx, logger, download)
	outcome := p.process(taskCtx, logger, download)
	p.journalFinish(taskCtx, logger, record, outcome)

	switch {
	case outcome.err != nil:
		logger.Error("processing failed, download left for retry",
			logging.Error(outcome.err))
	case outcome.status == history.StatusDeferred:
		logger.Info("waiting for remaining parts")
	default:
		logger.Info("processing finished",
			logging.String("status", string(outcome.status)),
			logging.String("category", outcome.category),
			logging.String("final_path", outcome.finalPath))
	}
}

// journalStart opens a pending journal row before processing begins, so a
// crash mid-task leaves a visible trace. Returns nil when journaling is off
// or the insert fails.
func (p *Processor) journalStart(ctx context.Context, logger *slog.Logger, download aria2.Download) *history.Record {
	if p.store == nil {
		return nil
	}
	record := &history.Record{
		GID:    download.GID,
		Title:  download.Name,
		Status: history.StatusPending,
	}
	if err := p.store.Add(ctx, record); err != nil {
		logger.Warn("journal write failed", logging.Error(err))
		return nil
	}
	return record
}

// journalFinish moves the pending row to its terminal state.
func (p *Processor) journalFinish(ctx context.Context, logger *slog.Logger, record *history.Record, outcome taskOutcome) {
	if record == nil {
		return
	}
	record.Category = outcome.category
	record.Status = outcome.status
	record.FinalPath = outcome.finalPath
	if outcome.err != nil {
		record.ErrorMessage = outcome.err.Error()
	}
	if err := p.store.Update(ctx, record); err != nil {
		logger.Warn("journal update failed", logging.Error(err))
	}
}
