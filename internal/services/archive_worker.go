package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"returnremind/internal/clock"
	"returnremind/internal/store"

	"github.com/robfig/cron/v3"
)

// DefaultArchiveSchedule runs the archival sweep daily at 02:00
const DefaultArchiveSchedule = "0 2 * * *"

// ArchiveResult summarizes one archival sweep run
type ArchiveResult struct {
	Expired          int
	Archived         int
	RemindersSkipped int
	Failed           int
}

// ArchiveWorker retires purchases whose return deadline has passed
type ArchiveWorker struct {
	store    store.Store
	clock    clock.Clock
	logger   *slog.Logger
	schedule cron.Schedule
	cron     *cron.Cron

	wg sync.WaitGroup
}

// NewArchiveWorker parses a standard 5-field cron expression evaluated in the clock's location
func NewArchiveWorker(st store.Store, clk clock.Clock, logger *slog.Logger, expr string) (*ArchiveWorker, error) {
	if expr == "" {
		expr = DefaultArchiveSchedule
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse archive schedule %q: %w", expr, err)
	}
	logger = logger.With("worker", "archive-sweep")
	return &ArchiveWorker{
		store:    st,
		clock:    clk,
		logger:   logger,
		schedule: schedule,
		cron: cron.New(
			cron.WithLocation(clk.Location()),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
		),
	}, nil
}

// Start schedules the daily sweep until ctx is done
func (w *ArchiveWorker) Start(ctx context.Context) {
	w.cron.Schedule(w.schedule, cron.FuncJob(func() { w.sweep(ctx) }))
	w.cron.Start()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		<-ctx.Done()
		<-w.cron.Stop().Done()
	}()
}

// Wait blocks until the scheduler has stopped and any running sweep finished
func (w *ArchiveWorker) Wait() {
	w.wg.Wait()
}

func (w *ArchiveWorker) sweep(ctx context.Context) {
	res, err := w.RunOnce(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "archive sweep finished with failures",
			"expired", res.Expired, "archived", res.Archived, "failed", res.Failed, "error", err)
		return
	}
	w.logger.InfoContext(ctx, "archive sweep finished",
		"expired", res.Expired, "archived", res.Archived, "reminders_skipped", res.RemindersSkipped)
}

// RunOnce archives every non-archived purchase whose deadline is before today.
// Each purchase commits on its own; failures are collected and the sweep continues.
func (w *ArchiveWorker) RunOnce(ctx context.Context) (ArchiveResult, error) {
	now := w.clock.Now()
	expired, err := w.store.ListExpiredPurchases(ctx, DateOf(now))
	if err != nil {
		return ArchiveResult{}, err
	}

	res := ArchiveResult{Expired: len(expired)}
	var errs []error
	for _, p := range expired {
		skipped, err := w.store.ArchivePurchase(ctx, p.ID, now)
		if err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("archive purchase %s: %w", p.ID, err))
			w.logger.ErrorContext(ctx, "archive purchase failed", "purchase_id", p.ID, "error", err)
			continue
		}
		res.Archived++
		res.RemindersSkipped += skipped
	}
	return res, errors.Join(errs...)
}

// cronLogger adapts slog to cron's logger interface
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
