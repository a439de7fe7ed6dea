package entities

import (
	"time"

	"gorm.io/gorm"
)

// User is an account. Visibility and LibraryVisibility are "hidden" flags:
// true means the profile (or library) is not shown to other users.
type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Username          string         `gorm:"uniqueIndex;size:100;not null" json:"user_name"`
	Email             string         `gorm:"index;size:255" json:"email"`
	PasswordHash      string         `gorm:"size:255" json:"-"`
	AuthorityID       AuthorityID    `gorm:"not null;default:2" json:"authority_id"`
	EmailVerified     bool           `gorm:"default:false" json:"email_verified"`
	GoogleID          *string        `gorm:"uniqueIndex;size:64" json:"-"`
	Visibility        bool           `gorm:"not null;default:false" json:"user_visibility"`
	LibraryVisibility bool           `gorm:"not null;default:false" json:"library_visibility"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.AuthorityID == AuthorityAdmin
}

func (u *User) IsGuest() bool {
	return u.AuthorityID == AuthorityGuest
}
