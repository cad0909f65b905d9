package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidTransition is returned when a reminder is moved out of a terminal status
var ErrInvalidTransition = errors.New("invalid reminder status transition")

// ErrClaimHeld is returned when another sender holds an unexpired claim on a reminder
var ErrClaimHeld = errors.New("reminder claimed by another sender")

// ReminderKind names the trigger point a reminder is tied to
type ReminderKind string

const (
	SevenDaysBefore ReminderKind = "seven_days_before"
	OneDayBefore    ReminderKind = "one_day_before"
	DeadlineReached ReminderKind = "deadline_reached"
)

// ReminderStatus is the delivery state of a reminder
type ReminderStatus string

const (
	StatusPending ReminderStatus = "pending"
	StatusSent    ReminderStatus = "sent"
	StatusSkipped ReminderStatus = "skipped"
)

// Terminal reports whether no further transition is allowed from s
func (s ReminderStatus) Terminal() bool {
	return s == StatusSent || s == StatusSkipped
}

// Reminder is a scheduled email notification for a purchase.
// Status only ever moves pending -> sent or pending -> skipped.
type Reminder struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	PurchaseID   string         `gorm:"size:36;not null;index:idx_reminder_purchase_status" json:"purchase_id"`
	Kind         ReminderKind   `gorm:"size:32;not null" json:"kind"`
	ScheduledFor time.Time      `gorm:"not null;index:idx_reminder_status_scheduled" json:"scheduled_for"`
	SentAt       *time.Time     `json:"sent_at"`
	Status       ReminderStatus `gorm:"size:16;not null;index:idx_reminder_status_scheduled;index:idx_reminder_purchase_status" json:"status"`

	// A sweep claims a pending reminder before sending it; the claim lapses at ClaimedUntil.
	ClaimToken   string     `gorm:"size:36;not null;default:''" json:"-"`
	ClaimedUntil *time.Time `json:"-"`

	Purchase Purchase `gorm:"foreignKey:PurchaseID" json:"-"`
}

// BeforeCreate hook is called before creating a new reminder
func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}

// TableName specifies the table name for the Reminder model
func (Reminder) TableName() string {
	return "reminder"
}

// MarkSent returns a copy of the reminder transitioned to sent at the given time
func (r Reminder) MarkSent(at time.Time) (Reminder, error) {
	if r.Status != StatusPending {
		return r, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, StatusSent)
	}
	r.Status = StatusSent
	r.SentAt = &at
	return r, nil
}

// MarkSkipped returns a copy of the reminder transitioned to skipped
func (r Reminder) MarkSkipped() (Reminder, error) {
	if r.Status != StatusPending {
		return r, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, StatusSkipped)
	}
	r.Status = StatusSkipped
	r.SentAt = nil
	return r, nil
}

// Transition applies the named target status
func (r Reminder) Transition(to ReminderStatus, at time.Time) (Reminder, error) {
	switch to {
	case StatusSent:
		return r.MarkSent(at)
	case StatusSkipped:
		return r.MarkSkipped()
	default:
		return r, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
}

// Claim returns a copy of the reminder reserved for one sender until the given time.
// A pending reminder can be claimed when it has no claim or its claim has lapsed.
func (r Reminder) Claim(token string, now, until time.Time) (Reminder, error) {
	if r.Status != StatusPending {
		return r, fmt.Errorf("%w: cannot claim %s reminder", ErrInvalidTransition, r.Status)
	}
	if r.ClaimedUntil != nil && r.ClaimedUntil.After(now) {
		return r, ErrClaimHeld
	}
	r.ClaimToken = token
	r.ClaimedUntil = &until
	return r, nil
}

// Unclaim drops the claim if token still owns it
func (r Reminder) Unclaim(token string) Reminder {
	if r.ClaimToken == token {
		r.ClaimToken = ""
		r.ClaimedUntil = nil
	}
	return r
}
