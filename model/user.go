package model

import "time"

// User represents a registered chat user.
// The ID is an opaque UUID string assigned at registration and is the
// identity every other table references.
type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:128;not null" json:"email"`
	DisplayName  string     `gorm:"size:64" json:"display_name"`
	PasswordHash string     `gorm:"size:64;not null" json:"-"`
	PhoneNumber  string     `gorm:"size:32" json:"phone_number,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}
