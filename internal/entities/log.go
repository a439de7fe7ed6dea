package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Log is the append-only audit trail. Exactly one of the entity references
// is usually set, matching the event type.
type Log struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       *uint          `gorm:"index" json:"user_id,omitempty"`
	EventTypeID  EventTypeID    `gorm:"index;not null" json:"event_type_id"`
	EventDate    time.Time      `gorm:"index" json:"event_date"`
	BookID       *uint          `gorm:"index" json:"book_id,omitempty"`
	AuthorID     *uint          `gorm:"index" json:"author_id,omitempty"`
	CategoryID   *uint          `gorm:"index" json:"category_id,omitempty"`
	PublisherID  *uint          `gorm:"index" json:"publisher_id,omitempty"`
	ReadingID    *uint          `gorm:"index" json:"reading_id,omitempty"`
	TranslatorID *uint          `json:"translator_id,omitempty"`
	Description  string         `gorm:"type:text" json:"description,omitempty"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"` // request id, ip, user agent

	EventType *EventType `gorm:"foreignKey:EventTypeID" json:"event_type,omitempty"`
}

func (Log) TableName() string {
	return "logs"
}
