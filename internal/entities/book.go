package entities

import (
	"time"

	"gorm.io/gorm"
)

type Book struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"index;size:512;not null" json:"title"`
	AuthorID    uint           `gorm:"index;not null" json:"author_id"`
	PublisherID *uint          `gorm:"index" json:"publisher_id,omitempty"`
	StatusID    StatusID       `gorm:"index;not null" json:"status_id"`
	Summary     string         `gorm:"type:text" json:"summary,omitempty"`
	ISBN        string         `gorm:"size:20" json:"isbn,omitempty"`
	ImageKey    *string        `gorm:"size:512" json:"-"` // object storage key
	OwnerUserID uint           `gorm:"index" json:"owner_user_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Author    *Author    `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Publisher *Publisher `gorm:"foreignKey:PublisherID" json:"publisher,omitempty"`
	Status    *Status    `gorm:"foreignKey:StatusID" json:"status,omitempty"`

	// Populated by the books repository from active book_categories rows.
	Categories []Category `gorm:"-" json:"categories,omitempty"`
	// Populated per request with a time-limited signed URL.
	CoverURL string `gorm:"-" json:"cover_url,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

// HasCover reports whether the book references a stored cover object.
func (b *Book) HasCover() bool {
	return b.ImageKey != nil && *b.ImageKey != ""
}

// BookCategory links a book to a category. Rows are soft-deleted when the link is dropped.
type BookCategory struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BookID     uint           `gorm:"index;not null" json:"book_id"`
	CategoryID uint           `gorm:"index;not null" json:"category_id"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (BookCategory) TableName() string {
	return "book_categories"
}
