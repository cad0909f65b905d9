// Package store persists users, purchases and reminders.
package store

import (
	"context"
	"errors"
	"time"

	"returnremind/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("not found")
	// ErrPersistence wraps failures of the underlying database
	ErrPersistence = errors.New("persistence failure")
	// ErrConflict is returned when a conditional update finds the record already changed
	ErrConflict = errors.New("record changed concurrently")
)

// UserStore persists purchase owners.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
}

// PurchaseStore persists purchases.
type PurchaseStore interface {
	GetPurchase(ctx context.Context, id string) (models.Purchase, error)
	// ListPurchasesByOwner returns the owner's purchases with the given archived flag,
	// newest deadline last.
	ListPurchasesByOwner(ctx context.Context, ownerID string, archived bool) ([]models.Purchase, error)
	// ListExpiredPurchases returns non-archived purchases whose deadline is strictly before the given date.
	ListExpiredPurchases(ctx context.Context, before time.Time) ([]models.Purchase, error)
}

// ReminderStore persists reminders.
type ReminderStore interface {
	// ListDueReminders returns pending reminders scheduled at or before the given time,
	// ordered by scheduled time.
	ListDueReminders(ctx context.Context, until time.Time) ([]models.Reminder, error)
	ListRemindersByPurchase(ctx context.Context, purchaseID string, status models.ReminderStatus) ([]models.Reminder, error)
	// ListRemindersByOwner returns every reminder of the owner's purchases.
	ListRemindersByOwner(ctx context.Context, ownerID string) ([]models.Reminder, error)
	// ListUpcomingReminders returns the owner's pending reminders scheduled at or after the given time.
	ListUpcomingReminders(ctx context.Context, ownerID string, from time.Time) ([]models.Reminder, error)
	// TransitionReminder moves a pending reminder to a terminal status.
	// It returns ErrConflict when the reminder is no longer pending.
	TransitionReminder(ctx context.Context, id string, to models.ReminderStatus, at time.Time) error
	// ClaimReminder reserves a pending reminder for the holder of token until the given time.
	// It returns ErrConflict when the reminder is no longer pending or another claim is still live.
	ClaimReminder(ctx context.Context, id, token string, now, until time.Time) error
	// ReleaseReminder drops a claim so the next sweep can retry. A claim owned by
	// another token is left alone.
	ReleaseReminder(ctx context.Context, id, token string) error
}

// Store is the full record store used by the services.
type Store interface {
	UserStore
	PurchaseStore
	ReminderStore

	// CreatePurchaseWithReminders saves a purchase and its reminders atomically.
	CreatePurchaseWithReminders(ctx context.Context, p *models.Purchase, reminders []models.Reminder) error
	// ArchivePurchase skips the purchase's pending reminders and flags it archived atomically.
	// It returns the number of reminders skipped.
	ArchivePurchase(ctx context.Context, purchaseID string, at time.Time) (int, error)
}
