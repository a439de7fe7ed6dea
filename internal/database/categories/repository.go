// Package categories provides database operations for categories.
package categories

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

func (r *Repository) Create(ctx context.Context, category *entities.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Category, error) {
	var category entities.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) List(ctx context.Context) ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

// FindByName returns categories whose name contains name, case-insensitively.
func (r *Repository) FindByName(ctx context.Context, name string) ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.WithContext(ctx).
		Where(`search_name LIKE ? ESCAPE '\'`, database.ContainsPattern(entities.SearchKey(name))).
		Find(&categories).Error
	return categories, err
}

func (r *Repository) FindExact(ctx context.Context, name string) (*entities.Category, error) {
	var category entities.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// CountExisting counts how many of ids refer to existing categories.
func (r *Repository) CountExisting(ctx context.Context, ids []uint) (int64, error) {
	var count int64
	if len(ids) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).Model(&entities.Category{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

func (r *Repository) Update(ctx context.Context, category *entities.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entities.Category{}, id).Error
}

// CountBookLinks counts active book_categories rows pointing at the category.
func (r *Repository) CountBookLinks(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.BookCategory{}).Where("category_id = ?", id).Count(&count).Error
	return count, err
}

func (r *Repository) ListWithBookCounts(ctx context.Context) ([]BookCount, error) {
	var rows []BookCount
	err := r.db.WithContext(ctx).
		Table("categories").
		Select("categories.id, categories.name, COUNT(book_categories.book_id) AS book_count").
		Joins("LEFT JOIN book_categories ON book_categories.category_id = categories.id AND book_categories.deleted_at IS NULL").
		Group("categories.id, categories.name").
		Order("categories.name ASC").
		Scan(&rows).Error
	return rows, err
}
