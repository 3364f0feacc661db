package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

const (
	RedactedEmail = "redacted@deleted.com"
	RedactedName  = "Deleted User"
)

// User mirrors an identity-provider subject. Profile fields are owned by the provider
// and only ever written from its events.
type User struct {
	ID             string         `gorm:"type:char(36);primaryKey" json:"id"`
	ExternalUserID string         `gorm:"type:varchar(191);not null;uniqueIndex" json:"-"`
	Email          string         `gorm:"type:varchar(255);not null" json:"email" validate:"required,email"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Role           string         `gorm:"type:varchar(20);not null;default:'user'" json:"role" validate:"oneof=user admin"`
	ImageURL       *string        `gorm:"type:varchar(512)" json:"image_url"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = ROLE_USER
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// TombstoneExternalID is stored in place of the provider id once a user is deleted.
// It stays unique per row so the unique index on external_user_id keeps holding.
func TombstoneExternalID(userID string) string {
	return "deleted:" + userID
}

// RedactionUpdates is the column set written when a user is soft-deleted.
func RedactionUpdates(userID string, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"external_user_id": TombstoneExternalID(userID),
		"email":            RedactedEmail,
		"name":             RedactedName,
		"image_url":        nil,
		"deleted_at":       now,
		"updated_at":       now,
	}
}

// IsValidRole reports whether a role value coming from the identity provider is known.
func IsValidRole(role string) bool {
	return role == ROLE_USER || role == ROLE_ADMIN
}
