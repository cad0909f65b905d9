package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"returnremind/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of GORM (Postgres in production).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open connection. Migrations are run by the database package.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// wrap maps driver errors onto the store's error taxonomy
func wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", what, ErrPersistence, err)
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return wrap(s.db.WithContext(ctx).Create(u).Error, "create user")
}

func (s *GormStore) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	return u, wrap(err, "user %s", id)
}

func (s *GormStore) GetPurchase(ctx context.Context, id string) (models.Purchase, error) {
	var p models.Purchase
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return p, wrap(err, "purchase %s", id)
}

func (s *GormStore) ListPurchasesByOwner(ctx context.Context, ownerID string, archived bool) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND archived = ?", ownerID, archived).
		Order("return_deadline asc").
		Find(&purchases).Error
	return purchases, wrap(err, "list purchases of %s", ownerID)
}

func (s *GormStore) ListExpiredPurchases(ctx context.Context, before time.Time) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.WithContext(ctx).
		Where("archived = ? AND return_deadline < ?", false, datatypes.Date(before)).
		Order("return_deadline asc").
		Find(&purchases).Error
	return purchases, wrap(err, "list expired purchases")
}

func (s *GormStore) ListDueReminders(ctx context.Context, until time.Time) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", models.StatusPending, until).
		Order("scheduled_for asc").
		Find(&reminders).Error
	return reminders, wrap(err, "list due reminders")
}

func (s *GormStore) ListRemindersByPurchase(ctx context.Context, purchaseID string, status models.ReminderStatus) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.db.WithContext(ctx).
		Where("purchase_id = ? AND status = ?", purchaseID, status).
		Order("scheduled_for asc").
		Find(&reminders).Error
	return reminders, wrap(err, "list reminders of purchase %s", purchaseID)
}

func (s *GormStore) ListRemindersByOwner(ctx context.Context, ownerID string) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.db.WithContext(ctx).
		Joins(`JOIN "purchase" ON "purchase"."id" = "reminder"."purchase_id"`).
		Where(`"purchase"."owner_id" = ?`, ownerID).
		Order(`"reminder"."scheduled_for" asc`).
		Find(&reminders).Error
	return reminders, wrap(err, "list reminders of %s", ownerID)
}

func (s *GormStore) ListUpcomingReminders(ctx context.Context, ownerID string, from time.Time) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.db.WithContext(ctx).
		Joins(`JOIN "purchase" ON "purchase"."id" = "reminder"."purchase_id"`).
		Where(`"purchase"."owner_id" = ? AND "reminder"."status" = ? AND "reminder"."scheduled_for" >= ?`,
			ownerID, models.StatusPending, from).
		Order(`"reminder"."scheduled_for" asc`).
		Find(&reminders).Error
	return reminders, wrap(err, "list upcoming reminders of %s", ownerID)
}

// TransitionReminder only touches rows that are still pending, so two
// overlapping sweeps can never both claim the same reminder.
func (s *GormStore) TransitionReminder(ctx context.Context, id string, to models.ReminderStatus, at time.Time) error {
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.StatusSent:
		updates["sent_at"] = at
	case models.StatusSkipped:
	default:
		return fmt.Errorf("reminder %s: %w: pending -> %s", id, models.ErrInvalidTransition, to)
	}

	res := s.db.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return wrap(res.Error, "transition reminder %s", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reminder %s: %w", id, ErrConflict)
	}
	return nil
}

// ClaimReminder is a conditional update as well: only one sender can hold a live
// claim, and an expired claim can be taken over.
func (s *GormStore) ClaimReminder(ctx context.Context, id, token string, now, until time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("id = ? AND status = ? AND (claimed_until IS NULL OR claimed_until <= ?)", id, models.StatusPending, now).
		Updates(map[string]interface{}{"claim_token": token, "claimed_until": until})
	if res.Error != nil {
		return wrap(res.Error, "claim reminder %s", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("claim reminder %s: %w", id, ErrConflict)
	}
	return nil
}

func (s *GormStore) ReleaseReminder(ctx context.Context, id, token string) error {
	err := s.db.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("id = ? AND claim_token = ? AND status = ?", id, token, models.StatusPending).
		Updates(map[string]interface{}{"claim_token": "", "claimed_until": nil}).Error
	return wrap(err, "release reminder %s", id)
}

func (s *GormStore) CreatePurchaseWithReminders(ctx context.Context, p *models.Purchase, reminders []models.Reminder) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(&models.User{}).Where("id = ?", p.OwnerID).Count(&owners).Error; err != nil {
			return err
		}
		if owners == 0 {
			return fmt.Errorf("user %s: %w", p.OwnerID, ErrNotFound)
		}
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		if len(reminders) == 0 {
			return nil
		}
		for i := range reminders {
			reminders[i].PurchaseID = p.ID
		}
		return tx.Omit(clause.Associations).Create(&reminders).Error
	})
	return wrap(err, "create purchase")
}

func (s *GormStore) ArchivePurchase(ctx context.Context, purchaseID string, at time.Time) (int, error) {
	var skipped int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Reminder{}).
			Where("purchase_id = ? AND status = ?", purchaseID, models.StatusPending).
			Update("status", models.StatusSkipped)
		if res.Error != nil {
			return res.Error
		}
		skipped = res.RowsAffected

		res = tx.Model(&models.Purchase{}).
			Where("id = ? AND archived = ?", purchaseID, false).
			Updates(map[string]interface{}{"archived": true, "archived_at": gorm.Expr("GREATEST(?, created_at)", at)})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already archived or gone; roll back the reminder updates.
			return fmt.Errorf("purchase %s: %w", purchaseID, ErrConflict)
		}
		return nil
	})
	if err != nil {
		return 0, wrap(err, "archive purchase %s", purchaseID)
	}
	return int(skipped), nil
}
