// Package publishers provides database operations for publishers.
package publishers

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/kitaplik/internal/database"
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

type BookCount struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	BookCount int64  `json:"book_count"`
}

func (r *Repository) Create(ctx context.Context, publisher *entities.Publisher) error {
	return r.db.WithContext(ctx).Create(publisher).Error
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Publisher, error) {
	var publisher entities.Publisher
	if err := r.db.WithContext(ctx).First(&publisher, id).Error; err != nil {
		return nil, err
	}
	return &publisher, nil
}

func (r *Repository) List(ctx context.Context) ([]entities.Publisher, error) {
	var publishers []entities.Publisher
	err := r.db.WithContext(ctx).Order("name ASC").Find(&publishers).Error
	return publishers, err
}

// FindByName returns publishers whose name contains name, case-insensitively.
func (r *Repository) FindByName(ctx context.Context, name string) ([]entities.Publisher, error) {
	var publishers []entities.Publisher
	err := r.db.WithContext(ctx).
		Where(`search_name LIKE ? ESCAPE '\'`, database.ContainsPattern(entities.SearchKey(name))).
		Find(&publishers).Error
	return publishers, err
}

// FindExact returns the publisher with exactly this (normalized) name.
func (r *Repository) FindExact(ctx context.Context, name string) (*entities.Publisher, error) {
	var publisher entities.Publisher
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&publisher).Error; err != nil {
		return nil, err
	}
	return &publisher, nil
}

func (r *Repository) Update(ctx context.Context, publisher *entities.Publisher) error {
	return r.db.WithContext(ctx).Save(publisher).Error
}

func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entities.Publisher{}, id).Error
}

// CountBooks counts active books from the publisher.
func (r *Repository) CountBooks(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Where("publisher_id = ?", id).Count(&count).Error
	return count, err
}

func (r *Repository) ListWithBookCounts(ctx context.Context) ([]BookCount, error) {
	var rows []BookCount
	err := r.db.WithContext(ctx).
		Table("publishers").
		Select("publishers.id, publishers.name, COUNT(books.id) AS book_count").
		Joins("LEFT JOIN books ON books.publisher_id = publishers.id AND books.deleted_at IS NULL").
		Group("publishers.id, publishers.name").
		Order("publishers.name ASC").
		Scan(&rows).Error
	return rows, err
}
