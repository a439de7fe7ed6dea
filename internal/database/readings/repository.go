// Package readings provides database operations for per-user reading records.
package readings

import (
	"context"

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

// Stats summarizes a user's readings.
type Stats struct {
	Interacted int64 `json:"interacted_book_count"`
	Completed  int64 `json:"completed_book_count"`
	Abandoned  int64 `json:"abandoned_book_count"`
}

// FavoriteAuthor is the author a user has the most readings for.
type FavoriteAuthor struct {
	AuthorID uint    `json:"author_id"`
	Name     string  `json:"name"`
	Surname  *string `json:"surname,omitempty"`
	Readings int64   `gorm:"column:reading_count" json:"reading_count"`
}

func (r *Repository) Create(ctx context.Context, reading *entities.Reading) error {
	return r.db.WithContext(ctx).Omit("Book", "Status").Create(reading).Error
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Reading, error) {
	var reading entities.Reading
	if err := r.db.WithContext(ctx).First(&reading, id).Error; err != nil {
		return nil, err
	}
	return &reading, nil
}

// FindByUserAndBook returns the active reading for the pair, or gorm.ErrRecordNotFound.
func (r *Repository) FindByUserAndBook(ctx context.Context, userID, bookID uint) (*entities.Reading, error) {
	var reading entities.Reading
	err := r.db.WithContext(ctx).Where("user_id = ? AND book_id = ?", userID, bookID).First(&reading).Error
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

// ListForUser returns the user's readings with book, author, publisher and status.
func (r *Repository) ListForUser(ctx context.Context, userID uint) ([]entities.Reading, error) {
	var readings []entities.Reading
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Book.Author").
		Preload("Book.Publisher").
		Preload("Status").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&readings).Error
	return readings, err
}

// CountForBook counts active readings of the book, optionally in one status.
func (r *Repository) CountForBook(ctx context.Context, bookID uint, status entities.StatusID) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entities.Reading{}).Where("book_id = ?", bookID)
	if status != 0 {
		query = query.Where("status_id = ?", status)
	}
	err := query.Count(&count).Error
	return count, err
}

// Update writes status and comment of an existing reading.
func (r *Repository) Update(ctx context.Context, reading *entities.Reading) error {
	return r.db.WithContext(ctx).Model(&entities.Reading{}).
		Where("id = ?", reading.ID).
		Updates(map[string]any{
			"status_id": reading.StatusID,
			"comment":   reading.Comment,
		}).Error
}

func (r *Repository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entities.Reading{}, id).Error
}

func (r *Repository) StatsForUser(ctx context.Context, userID uint) (Stats, error) {
	var stats Stats
	err := r.db.WithContext(ctx).Model(&entities.Reading{}).
		Select("COUNT(*) AS interacted, "+
			"COALESCE(SUM(CASE WHEN status_id = ? THEN 1 ELSE 0 END), 0) AS completed, "+
			"COALESCE(SUM(CASE WHEN status_id = ? THEN 1 ELSE 0 END), 0) AS abandoned",
			entities.StatusFinished, entities.StatusAbandoned).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	return stats, err
}

// FavoriteAuthor returns nil when the user has no readings.
func (r *Repository) FavoriteAuthor(ctx context.Context, userID uint) (*FavoriteAuthor, error) {
	var rows []FavoriteAuthor
	err := r.db.WithContext(ctx).
		Table("readings").
		Select("authors.id AS author_id, authors.name, authors.surname, COUNT(readings.id) AS reading_count").
		Joins("JOIN books ON books.id = readings.book_id").
		Joins("JOIN authors ON authors.id = books.author_id").
		Where("readings.user_id = ? AND readings.deleted_at IS NULL", userID).
		Group("authors.id, authors.name, authors.surname").
		Order("reading_count DESC, authors.name ASC").
		Limit(1).
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}
