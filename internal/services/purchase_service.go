package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"returnremind/internal/clock"
	"returnremind/internal/models"
	"returnremind/internal/store"

	"gorm.io/datatypes"
)

// CreatePurchaseInput carries the fields of a new purchase
type CreatePurchaseInput struct {
	OwnerID          string
	MerchantName     string
	ItemName         string
	PurchaseDate     time.Time
	ReturnWindowDays int
}

// PurchaseService records purchases and answers owner-scoped reads
type PurchaseService struct {
	store store.Store
	clock clock.Clock
}

func NewPurchaseService(st store.Store, clk clock.Clock) *PurchaseService {
	return &PurchaseService{store: st, clock: clk}
}

// CreatePurchase validates the input, derives the deadline and reminder plan,
// and persists the purchase together with its reminders.
func (s *PurchaseService) CreatePurchase(ctx context.Context, in CreatePurchaseInput) (models.Purchase, error) {
	merchant := strings.TrimSpace(in.MerchantName)
	item := strings.TrimSpace(in.ItemName)
	if merchant == "" || item == "" {
		return models.Purchase{}, fmt.Errorf("%w: merchant and item names are required", ErrInvalidInput)
	}
	if in.PurchaseDate.IsZero() {
		return models.Purchase{}, fmt.Errorf("%w: purchase date is required", ErrInvalidInput)
	}
	deadline, err := ComputeDeadline(in.PurchaseDate, in.ReturnWindowDays)
	if err != nil {
		return models.Purchase{}, err
	}

	if _, err := s.store.GetUser(ctx, in.OwnerID); err != nil {
		return models.Purchase{}, err
	}

	now := s.clock.Now()
	purchase := models.Purchase{
		ID:               models.NewID(),
		OwnerID:          in.OwnerID,
		MerchantName:     merchant,
		ItemName:         item,
		PurchaseDate:     datatypes.Date(DateOf(in.PurchaseDate)),
		ReturnWindowDays: in.ReturnWindowDays,
		ReturnDeadline:   datatypes.Date(deadline),
		CreatedAt:        now,
	}

	plan := ComputeReminderPlan(deadline, now)
	reminders := make([]models.Reminder, 0, len(plan))
	for _, pr := range plan {
		reminders = append(reminders, models.Reminder{
			ID:           models.NewID(),
			PurchaseID:   purchase.ID,
			Kind:         pr.Kind,
			ScheduledFor: pr.ScheduledFor,
			Status:       models.StatusPending,
		})
	}

	if err := s.store.CreatePurchaseWithReminders(ctx, &purchase, reminders); err != nil {
		return models.Purchase{}, err
	}
	return purchase, nil
}

// ListActivePurchases returns the owner's purchases that are not archived
func (s *PurchaseService) ListActivePurchases(ctx context.Context, ownerID string) ([]models.Purchase, error) {
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.store.ListPurchasesByOwner(ctx, ownerID, false)
}

// ListArchivedPurchases returns the owner's purchase history
func (s *PurchaseService) ListArchivedPurchases(ctx context.Context, ownerID string) ([]models.Purchase, error) {
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.store.ListPurchasesByOwner(ctx, ownerID, true)
}

// ListUpcomingReminders returns pending reminders that have not come due yet
func (s *PurchaseService) ListUpcomingReminders(ctx context.Context, ownerID string) ([]models.Reminder, error) {
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.store.ListUpcomingReminders(ctx, ownerID, s.clock.Now())
}

// ListAllReminders returns every reminder of the owner's purchases
func (s *PurchaseService) ListAllReminders(ctx context.Context, ownerID string) ([]models.Reminder, error) {
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.store.ListRemindersByOwner(ctx, ownerID)
}
