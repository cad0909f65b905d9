package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"returnremind/internal/models"
)

// MemoryStore keeps records in-process. Used for local runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]models.User
	purchases map[string]models.Purchase
	reminders map[string]models.Reminder
	order     []string // reminder insertion order
	porder    []string // purchase insertion order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]models.User),
		purchases: make(map[string]models.Purchase),
		reminders: make(map[string]models.Reminder),
	}
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = models.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if _, exists := m.users[u.ID]; exists {
		return fmt.Errorf("%w: user %s already exists", ErrPersistence, u.ID)
	}
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}

func (m *MemoryStore) GetPurchase(ctx context.Context, id string) (models.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.purchases[id]
	if !ok {
		return models.Purchase{}, fmt.Errorf("purchase %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (m *MemoryStore) ListPurchasesByOwner(ctx context.Context, ownerID string, archived bool) ([]models.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]models.Purchase, 0)
	for _, id := range m.porder {
		p := m.purchases[id]
		if p.OwnerID == ownerID && p.Archived == archived {
			res = append(res, p)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Deadline().Before(res[j].Deadline())
	})
	return res, nil
}

func (m *MemoryStore) ListExpiredPurchases(ctx context.Context, before time.Time) ([]models.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]models.Purchase, 0)
	for _, id := range m.porder {
		p := m.purchases[id]
		if !p.Archived && p.Deadline().Before(before) {
			res = append(res, p)
		}
	}
	return res, nil
}

func (m *MemoryStore) ListDueReminders(ctx context.Context, until time.Time) ([]models.Reminder, error) {
	return m.filterReminders(func(r models.Reminder) bool {
		return r.Status == models.StatusPending && !r.ScheduledFor.After(until)
	}), nil
}

func (m *MemoryStore) ListRemindersByPurchase(ctx context.Context, purchaseID string, status models.ReminderStatus) ([]models.Reminder, error) {
	return m.filterReminders(func(r models.Reminder) bool {
		return r.PurchaseID == purchaseID && r.Status == status
	}), nil
}

func (m *MemoryStore) ListRemindersByOwner(ctx context.Context, ownerID string) ([]models.Reminder, error) {
	m.mu.RLock()
	owned := make(map[string]bool)
	for id, p := range m.purchases {
		if p.OwnerID == ownerID {
			owned[id] = true
		}
	}
	m.mu.RUnlock()
	return m.filterReminders(func(r models.Reminder) bool {
		return owned[r.PurchaseID]
	}), nil
}

func (m *MemoryStore) ListUpcomingReminders(ctx context.Context, ownerID string, from time.Time) ([]models.Reminder, error) {
	all, err := m.ListRemindersByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	res := make([]models.Reminder, 0, len(all))
	for _, r := range all {
		if r.Status == models.StatusPending && !r.ScheduledFor.Before(from) {
			res = append(res, r)
		}
	}
	return res, nil
}

// filterReminders returns matching reminders ordered by scheduled time, then insertion order.
func (m *MemoryStore) filterReminders(keep func(models.Reminder) bool) []models.Reminder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]models.Reminder, 0)
	for _, id := range m.order {
		if r := m.reminders[id]; keep(r) {
			res = append(res, r)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].ScheduledFor.Before(res[j].ScheduledFor)
	})
	return res
}

func (m *MemoryStore) TransitionReminder(ctx context.Context, id string, to models.ReminderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	if r.Status != models.StatusPending {
		return fmt.Errorf("reminder %s is %s: %w", id, r.Status, ErrConflict)
	}
	next, err := r.Transition(to, at)
	if err != nil {
		return err
	}
	m.reminders[id] = next
	return nil
}

func (m *MemoryStore) ClaimReminder(ctx context.Context, id, token string, now, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	claimed, err := r.Claim(token, now, until)
	if err != nil {
		return fmt.Errorf("claim reminder %s: %w: %w", id, ErrConflict, err)
	}
	m.reminders[id] = claimed
	return nil
}

func (m *MemoryStore) ReleaseReminder(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reminders[id]; ok && r.Status == models.StatusPending {
		m.reminders[id] = r.Unclaim(token)
	}
	return nil
}

func (m *MemoryStore) CreatePurchaseWithReminders(ctx context.Context, p *models.Purchase, reminders []models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[p.OwnerID]; !ok {
		return fmt.Errorf("user %s: %w", p.OwnerID, ErrNotFound)
	}
	if p.ID == "" {
		p.ID = models.NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if _, exists := m.purchases[p.ID]; exists {
		return fmt.Errorf("%w: purchase %s already exists", ErrPersistence, p.ID)
	}

	// Validate everything before writing so a failure leaves no partial state.
	staged := make([]models.Reminder, len(reminders))
	for i, r := range reminders {
		if r.ID == "" {
			r.ID = models.NewID()
		}
		if r.Status == "" {
			r.Status = models.StatusPending
		}
		if _, exists := m.reminders[r.ID]; exists {
			return fmt.Errorf("%w: reminder %s already exists", ErrPersistence, r.ID)
		}
		r.PurchaseID = p.ID
		staged[i] = r
	}

	m.purchases[p.ID] = *p
	m.porder = append(m.porder, p.ID)
	for i, r := range staged {
		m.reminders[r.ID] = r
		m.order = append(m.order, r.ID)
		reminders[i] = r
	}
	return nil
}

func (m *MemoryStore) ArchivePurchase(ctx context.Context, purchaseID string, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.purchases[purchaseID]
	if !ok {
		return 0, fmt.Errorf("purchase %s: %w", purchaseID, ErrNotFound)
	}
	archived, err := p.Archive(at)
	if err != nil {
		return 0, fmt.Errorf("purchase %s: %w", purchaseID, ErrConflict)
	}

	skipped := 0
	for _, id := range m.order {
		r := m.reminders[id]
		if r.PurchaseID != purchaseID || r.Status != models.StatusPending {
			continue
		}
		next, err := r.MarkSkipped()
		if err != nil {
			return 0, err
		}
		m.reminders[id] = next
		skipped++
	}
	m.purchases[purchaseID] = archived
	return skipped, nil
}

// Reminder returns a reminder by id. Intended for tests and diagnostics.
func (m *MemoryStore) Reminder(id string) (models.Reminder, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reminders[id]
	return r, ok
}

// DeletePurchase removes a purchase without touching its reminders.
// It simulates a dangling reference for tests and diagnostics.
func (m *MemoryStore) DeletePurchase(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.purchases, id)
	filtered := m.porder[:0]
	for _, pid := range m.porder {
		if pid != id {
			filtered = append(filtered, pid)
		}
	}
	m.porder = filtered
}
