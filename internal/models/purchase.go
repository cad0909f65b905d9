package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrAlreadyArchived is returned when archiving a purchase twice
var ErrAlreadyArchived = errors.New("purchase already archived")

// NewID returns a new opaque record identifier
func NewID() string {
	return uuid.NewString()
}

// Purchase represents a recorded consumer purchase with a return deadline.
// PurchaseDate and ReturnDeadline are calendar dates stored as midnight UTC.
type Purchase struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	OwnerID          string         `gorm:"size:36;not null;index:idx_purchase_owner_archived" json:"owner_id"`
	MerchantName     string         `gorm:"size:255;not null" json:"merchant_name"`
	ItemName         string         `gorm:"size:255;not null" json:"item_name"`
	PurchaseDate     datatypes.Date `gorm:"not null" json:"purchase_date"`
	ReturnWindowDays int            `gorm:"not null" json:"return_window_days"`
	ReturnDeadline   datatypes.Date `gorm:"not null;index:idx_purchase_deadline_archived" json:"return_deadline"`
	Archived         bool           `gorm:"not null;default:false;index:idx_purchase_owner_archived;index:idx_purchase_deadline_archived" json:"archived"`
	ArchivedAt       *time.Time     `json:"archived_at"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`

	Owner User `gorm:"foreignKey:OwnerID" json:"-"`
}

// BeforeCreate hook is called before creating a new purchase
func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return nil
}

// TableName specifies the table name for the Purchase model
func (Purchase) TableName() string {
	return "purchase"
}

// Deadline returns the return deadline as a time.Time at midnight UTC
func (p Purchase) Deadline() time.Time {
	return time.Time(p.ReturnDeadline)
}

// Purchased returns the purchase date as a time.Time at midnight UTC
func (p Purchase) Purchased() time.Time {
	return time.Time(p.PurchaseDate)
}

// Archive returns a copy of the purchase flagged as archived at the given time.
// The flag flips exactly once; archiving before creation is clamped to CreatedAt.
func (p Purchase) Archive(at time.Time) (Purchase, error) {
	if p.Archived {
		return p, ErrAlreadyArchived
	}
	if at.Before(p.CreatedAt) {
		at = p.CreatedAt
	}
	p.Archived = true
	p.ArchivedAt = &at
	return p, nil
}

// CreatePurchaseRequest represents the data needed to record a purchase
type CreatePurchaseRequest struct {
	MerchantName     string `json:"merchantName" binding:"required,max=255"`
	ItemName         string `json:"itemName" binding:"required,max=255"`
	PurchaseDate     string `json:"purchaseDate" binding:"required,datetime=2006-01-02"`
	ReturnWindowDays *int   `json:"returnWindowDays" binding:"required"`
}
