package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"returnremind/internal/clock"
	"returnremind/internal/models"
	"returnremind/internal/store"

	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeNotifier records dispatched notices and fails while err is set
type fakeNotifier struct {
	mu      sync.Mutex
	notices []Notice
	calls   int
	err     error
}

func (f *fakeNotifier) Dispatch(ctx context.Context, n Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.notices = append(f.notices, n)
	return nil
}

func (f *fakeNotifier) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeNotifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeNotifier) sent() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notice(nil), f.notices...)
}

// flakyStore wraps a MemoryStore and injects failures per record id
type flakyStore struct {
	*store.MemoryStore
	purchaseErr  map[string]error
	archiveErr   map[string]error
	createErr    error
	archivedView map[string]bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{
		MemoryStore:  store.NewMemoryStore(),
		purchaseErr:  make(map[string]error),
		archiveErr:   make(map[string]error),
		archivedView: make(map[string]bool),
	}
}

func (f *flakyStore) GetPurchase(ctx context.Context, id string) (models.Purchase, error) {
	if err := f.purchaseErr[id]; err != nil {
		return models.Purchase{}, err
	}
	p, err := f.MemoryStore.GetPurchase(ctx, id)
	if err == nil && f.archivedView[id] {
		p.Archived = true
	}
	return p, err
}

func (f *flakyStore) ArchivePurchase(ctx context.Context, id string, at time.Time) (int, error) {
	if err := f.archiveErr[id]; err != nil {
		return 0, err
	}
	return f.MemoryStore.ArchivePurchase(ctx, id, at)
}

func (f *flakyStore) CreatePurchaseWithReminders(ctx context.Context, p *models.Purchase, reminders []models.Reminder) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.MemoryStore.CreatePurchaseWithReminders(ctx, p, reminders)
}

var errDBDown = errors.New("db down")

type fixture struct {
	store     *flakyStore
	clock     *clock.Fixed
	notifier  *fakeNotifier
	purchases *PurchaseService
	worker    *ReminderWorker
	archiver  *ArchiveWorker
	owner     models.User
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	st := newFlakyStore()
	clk := clock.NewFixed(now)
	notifier := &fakeNotifier{}
	logger := discardLogger()

	users := NewUserService(st, clk)
	owner, err := users.CreateUser(context.Background(), "Mira", "mira@example.com")
	require.NoError(t, err)

	archiver, err := NewArchiveWorker(st, clk, logger, DefaultArchiveSchedule)
	require.NoError(t, err)

	return &fixture{
		store:     st,
		clock:     clk,
		notifier:  notifier,
		purchases: NewPurchaseService(st, clk),
		worker: NewReminderWorker(st, notifier, NewLocalLock(), clk, logger, ReminderWorkerConfig{
			Interval:    time.Minute,
			Concurrency: 4,
		}),
		archiver: archiver,
		owner:    owner,
	}
}

func (f *fixture) createPurchase(t *testing.T, purchaseDate time.Time, window int) models.Purchase {
	t.Helper()
	p, err := f.purchases.CreatePurchase(context.Background(), CreatePurchaseInput{
		OwnerID:          f.owner.ID,
		MerchantName:     "Acme",
		ItemName:         "Kettle",
		PurchaseDate:     purchaseDate,
		ReturnWindowDays: window,
	})
	require.NoError(t, err)
	return p
}

// reminders returns all reminders of a purchase keyed by kind
func (f *fixture) reminders(t *testing.T, purchaseID string) map[models.ReminderKind]models.Reminder {
	t.Helper()
	all, err := f.store.ListRemindersByOwner(context.Background(), f.owner.ID)
	require.NoError(t, err)
	res := make(map[models.ReminderKind]models.Reminder)
	for _, r := range all {
		if r.PurchaseID == purchaseID {
			res[r.Kind] = r
		}
	}
	return res
}
