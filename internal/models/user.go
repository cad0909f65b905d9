package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the owner of purchases and the recipient of reminder emails
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// BeforeCreate hook is called before creating a new user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return nil
}

// TableName specifies the table name for the User model.
// "user" is reserved in Postgres.
func (User) TableName() string {
	return "app_user"
}

// CreateUserRequest represents the data needed to create a new user
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,email"`
}
