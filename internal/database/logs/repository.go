// Package logs persists the append-only audit trail.
package logs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/kitaplik/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Filter narrows List and Count. Zero values mean "any".
type Filter struct {
	UserID      uint
	EventTypeID entities.EventTypeID
	BookID      uint
	Limit       int
	Offset      int
}

// Create saves a log row. EventDate defaults to now.
func (r *Repository) Create(ctx context.Context, entry *entities.Log) error {
	if entry.EventDate.IsZero() {
		entry.EventDate = time.Now()
	}
	return r.db.WithContext(ctx).Omit("EventType").Create(entry).Error
}

func (r *Repository) apply(query *gorm.DB, filter Filter) *gorm.DB {
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.EventTypeID > 0 {
		query = query.Where("event_type_id = ?", filter.EventTypeID)
	}
	if filter.BookID > 0 {
		query = query.Where("book_id = ?", filter.BookID)
	}
	return query
}

// List retrieves paginated log rows, most recent first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]entities.Log, int64, error) {
	var entries []entities.Log
	var total int64

	query := r.apply(r.db.WithContext(ctx).Model(&entities.Log{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	err := query.Preload("EventType").
		Order("event_date DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&entries).Error
	return entries, total, err
}

func (r *Repository) Count(ctx context.Context, filter Filter) (int64, error) {
	var total int64
	err := r.apply(r.db.WithContext(ctx).Model(&entities.Log{}), filter).Count(&total).Error
	return total, err
}
