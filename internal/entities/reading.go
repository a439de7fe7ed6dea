package entities

import (
	"time"

	"gorm.io/gorm"
)

// Reading is one user's personal engagement with a book.
// At most one active reading exists per (user, book).
type Reading struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_readings_user_book,where:deleted_at IS NULL" json:"user_id"`
	BookID    uint           `gorm:"not null;index;uniqueIndex:idx_readings_user_book,where:deleted_at IS NULL" json:"book_id"`
	StatusID  StatusID       `gorm:"not null" json:"status_id"`
	Comment   *string        `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Book   *Book   `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Status *Status `gorm:"foreignKey:StatusID" json:"status,omitempty"`
}

func (Reading) TableName() string {
	return "readings"
}
