package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"returnremind/internal/clock"
	"returnremind/internal/models"
	"returnremind/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const reminderSweepLock = "reminder-sweep"

// dueSlack absorbs ticker jitter so reminders scheduled on the tick are not missed
const dueSlack = time.Second

// ErrSweepBusy is returned when another sweep run holds the lock
var ErrSweepBusy = errors.New("sweep already running")

// Verdict is the sweep's decision for one due reminder
type Verdict string

const (
	VerdictDispatch        Verdict = "dispatch"
	VerdictPurchaseMissing Verdict = "purchase_missing"
	VerdictArchived        Verdict = "purchase_archived"
	VerdictStale           Verdict = "stale"
	VerdictOffDeadlineDay  Verdict = "outside_deadline_day"
)

// Evaluate decides whether a due reminder is sent or skipped at now.
// purchase is nil when the owning purchase no longer exists.
func Evaluate(r models.Reminder, purchase *models.Purchase, now time.Time) Verdict {
	if purchase == nil {
		return VerdictPurchaseMissing
	}
	if purchase.Archived {
		return VerdictArchived
	}
	start, end := DeadlineWindow(purchase.Deadline(), now.Location())
	if now.After(end) {
		return VerdictStale
	}
	if r.Kind == models.DeadlineReached && (now.Before(start) || now.After(end)) {
		return VerdictOffDeadlineDay
	}
	return VerdictDispatch
}

// SweepResult summarizes one reminder sweep run
type SweepResult struct {
	Due     int
	Sent    int
	Skipped int
	Failed  int
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeSent
	outcomeSkipped
	outcomeRaced
)

// ReminderWorkerConfig holds the reminder sweep settings
type ReminderWorkerConfig struct {
	Interval    time.Duration
	Concurrency int
	LockTTL     time.Duration
	// ClaimTTL bounds how long a reminder stays reserved by a sender that
	// died mid-send. Defaults to LockTTL.
	ClaimTTL time.Duration
}

// ReminderWorker periodically sends due reminders
type ReminderWorker struct {
	store    store.Store
	notifier Notifier
	lock     SweepLock
	clock    clock.Clock
	logger   *slog.Logger

	interval    time.Duration
	concurrency int
	lockTTL     time.Duration
	claimTTL    time.Duration

	wg sync.WaitGroup
}

func NewReminderWorker(st store.Store, notifier Notifier, lock SweepLock, clk clock.Clock, logger *slog.Logger, cfg ReminderWorkerConfig) *ReminderWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = cfg.LockTTL
	}
	if lock == nil {
		lock = NewLocalLock()
	}
	return &ReminderWorker{
		store:       st,
		notifier:    notifier,
		lock:        lock,
		clock:       clk,
		logger:      logger.With("worker", "reminder-sweep"),
		interval:    cfg.Interval,
		concurrency: cfg.Concurrency,
		lockTTL:     cfg.LockTTL,
		claimTTL:    cfg.ClaimTTL,
	}
}

// Start runs a sweep immediately and then on every interval until ctx is done
func (w *ReminderWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Wait blocks until the worker loop has exited
func (w *ReminderWorker) Wait() {
	w.wg.Wait()
}

func (w *ReminderWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *ReminderWorker) sweep(ctx context.Context) {
	res, err := w.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrSweepBusy):
		w.logger.WarnContext(ctx, "previous sweep still running, skipping this tick")
	case err != nil:
		w.logger.ErrorContext(ctx, "reminder sweep failed", "error", err)
	case res.Due > 0:
		w.logger.InfoContext(ctx, "reminder sweep finished",
			"due", res.Due, "sent", res.Sent, "skipped", res.Skipped, "failed", res.Failed)
	}
}

// RunOnce performs a single sweep: every pending reminder due by now is
// either sent, skipped, or left pending for the next run if delivery fails.
func (w *ReminderWorker) RunOnce(ctx context.Context) (SweepResult, error) {
	release, ok, err := w.lock.TryAcquire(ctx, reminderSweepLock, w.lockTTL)
	if err != nil {
		return SweepResult{}, err
	}
	if !ok {
		return SweepResult{}, ErrSweepBusy
	}
	defer release()

	now := w.clock.Now()
	due, err := w.store.ListDueReminders(ctx, now.Add(dueSlack))
	if err != nil {
		return SweepResult{}, err
	}

	outcomes := make([]outcome, len(due))
	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for i, r := range due {
		i, r := i, r
		g.Go(func() error {
			outcomes[i] = w.process(ctx, r, now)
			return nil
		})
	}
	_ = g.Wait()

	res := SweepResult{Due: len(due)}
	for _, o := range outcomes {
		switch o {
		case outcomeSent:
			res.Sent++
		case outcomeSkipped:
			res.Skipped++
		case outcomeFailed:
			res.Failed++
		}
	}
	return res, nil
}

// process handles one reminder in isolation; its failures never affect the others
func (w *ReminderWorker) process(ctx context.Context, r models.Reminder, now time.Time) outcome {
	log := w.logger.With("reminder_id", r.ID, "purchase_id", r.PurchaseID, "kind", r.Kind)

	var purchase *models.Purchase
	p, err := w.store.GetPurchase(ctx, r.PurchaseID)
	switch {
	case err == nil:
		purchase = &p
	case errors.Is(err, store.ErrNotFound):
	default:
		log.ErrorContext(ctx, "load purchase failed", "error", err)
		return outcomeFailed
	}

	if verdict := Evaluate(r, purchase, now); verdict != VerdictDispatch {
		return w.transition(ctx, log, r, models.StatusSkipped, now, string(verdict))
	}

	owner, err := w.store.GetUser(ctx, purchase.OwnerID)
	if err != nil {
		log.ErrorContext(ctx, "load owner failed", "owner_id", purchase.OwnerID, "error", err)
		return outcomeFailed
	}

	// The sweep lock can lapse mid-run; the claim keeps a second sweeper from
	// sending the same reminder while this one is still delivering it.
	token := uuid.NewString()
	if err := w.store.ClaimReminder(ctx, r.ID, token, now, now.Add(w.claimTTL)); err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.InfoContext(ctx, "reminder claimed by another sweep")
			return outcomeRaced
		}
		log.ErrorContext(ctx, "claim reminder failed", "error", err)
		return outcomeFailed
	}

	if err := w.notifier.Dispatch(ctx, Notice{Reminder: r, Purchase: *purchase, Owner: owner}); err != nil {
		// Stays pending; the next run picks it up again.
		log.WarnContext(ctx, "dispatch failed, will retry next sweep", "to", owner.Email, "error", err)
		if err := w.store.ReleaseReminder(ctx, r.ID, token); err != nil {
			log.ErrorContext(ctx, "release reminder claim failed", "error", err)
		}
		return outcomeFailed
	}
	return w.transition(ctx, log, r, models.StatusSent, now, "delivered")
}

func (w *ReminderWorker) transition(ctx context.Context, log *slog.Logger, r models.Reminder, to models.ReminderStatus, now time.Time, reason string) outcome {
	err := w.store.TransitionReminder(ctx, r.ID, to, now)
	switch {
	case err == nil:
		log.InfoContext(ctx, "reminder updated", "status", to, "reason", reason)
		if to == models.StatusSent {
			return outcomeSent
		}
		return outcomeSkipped
	case errors.Is(err, store.ErrConflict):
		log.WarnContext(ctx, "reminder already handled elsewhere", "status", to)
		return outcomeRaced
	default:
		log.ErrorContext(ctx, "update reminder failed", "status", to, "error", err)
		return outcomeFailed
	}
}
