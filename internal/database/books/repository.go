// Package books provides database operations for books and their category links.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByID(ctx, 123)
package books

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListFilter narrows List results. Zero values mean "any".
type ListFilter struct {
	StatusID    entities.StatusID
	AuthorID    uint
	PublisherID uint
	CategoryID  uint
	OwnerUserID uint
	Query       string
	Limit       int
	Offset      int
}

// Create inserts the book row only; associations are written separately.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(book).Error
}

// GetByID retrieves an active book with author, publisher, status and categories.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Publisher").
		Preload("Status").
		First(&book, id).Error
	if err != nil {
		return nil, err
	}

	books := []*entities.Book{&book}
	if err := r.loadCategories(ctx, books); err != nil {
		return nil, err
	}
	return &book, nil
}

// GetForUpdate retrieves the bare book row without associations.
func (r *Repository) GetForUpdate(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// List returns a page of books and the total count for the filter.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]entities.Book, int64, error) {
	var books []entities.Book
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.Book{})
	if filter.StatusID != 0 {
		query = query.Where("books.status_id = ?", filter.StatusID)
	}
	if filter.AuthorID != 0 {
		query = query.Where("books.author_id = ?", filter.AuthorID)
	}
	if filter.PublisherID != 0 {
		query = query.Where("books.publisher_id = ?", filter.PublisherID)
	}
	if filter.OwnerUserID != 0 {
		query = query.Where("books.owner_user_id = ?", filter.OwnerUserID)
	}
	if filter.CategoryID != 0 {
		query = query.Where("EXISTS (SELECT 1 FROM book_categories bc WHERE bc.book_id = books.id AND bc.category_id = ? AND bc.deleted_at IS NULL)", filter.CategoryID)
	}
	if filter.Query != "" {
		query = query.Where(`LOWER(books.title) LIKE LOWER(?) ESCAPE '\'`, database.ContainsPattern(filter.Query))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	err := query.
		Preload("Author").
		Preload("Publisher").
		Preload("Status").
		Order("books.title ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&books).Error
	if err != nil {
		return nil, 0, err
	}

	ptrs := make([]*entities.Book, len(books))
	for i := range books {
		ptrs[i] = &books[i]
	}
	if err := r.loadCategories(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

type categoryRow struct {
	BookID uint
	entities.Category
}

func (r *Repository) loadCategories(ctx context.Context, books []*entities.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]uint, len(books))
	byID := make(map[uint]*entities.Book, len(books))
	for i, b := range books {
		ids[i] = b.ID
		byID[b.ID] = b
	}

	var rows []categoryRow
	err := r.db.WithContext(ctx).
		Table("categories").
		Select("book_categories.book_id, categories.*").
		Joins("JOIN book_categories ON book_categories.category_id = categories.id").
		Where("book_categories.book_id IN ? AND book_categories.deleted_at IS NULL", ids).
		Order("categories.name ASC").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to load book categories: %w", err)
	}

	for _, row := range rows {
		if b, ok := byID[row.BookID]; ok {
			b.Categories = append(b.Categories, row.Category)
		}
	}
	return nil
}

// Update saves the scalar columns of a book.
func (r *Repository) Update(ctx context.Context, book *entities.Book) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(book).Error
}

func (r *Repository) UpdateStatus(ctx context.Context, id uint, status entities.StatusID) error {
	return r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Update("status_id", status).Error
}

// SetImageKey points the book at a stored cover object (nil clears it).
func (r *Repository) SetImageKey(ctx context.Context, id uint, key *string) error {
	return r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Update("image_key", key).Error
}

// SoftDelete marks the book and its category links as deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("book_id = ?", id).Delete(&entities.BookCategory{}).Error; err != nil {
		return fmt.Errorf("failed to delete book categories: %w", err)
	}
	return db.Delete(&entities.Book{}, id).Error
}

// LinkCategories creates one active link per category id.
func (r *Repository) LinkCategories(ctx context.Context, bookID uint, categoryIDs []uint) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	links := make([]entities.BookCategory, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		links = append(links, entities.BookCategory{BookID: bookID, CategoryID: id})
	}
	return r.db.WithContext(ctx).Create(&links).Error
}

// ReplaceCategories soft-deletes the current links and creates new ones.
func (r *Repository) ReplaceCategories(ctx context.Context, bookID uint, categoryIDs []uint) error {
	if err := r.db.WithContext(ctx).Where("book_id = ?", bookID).Delete(&entities.BookCategory{}).Error; err != nil {
		return fmt.Errorf("failed to drop book categories: %w", err)
	}
	return r.LinkCategories(ctx, bookID, categoryIDs)
}

// CountReadings counts active readings of the book by any user.
func (r *Repository) CountReadings(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Reading{}).Where("book_id = ?", bookID).Count(&count).Error
	return count, err
}

// ListExpiredCovers finds books deleted before cutoff that still hold a cover key.
func (r *Repository) ListExpiredCovers(ctx context.Context, cutoff time.Time, limit int) ([]entities.Book, error) {
	var books []entities.Book
	if limit <= 0 {
		limit = 100
	}
	err := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ? AND image_key IS NOT NULL AND image_key <> ''", cutoff).
		Order("deleted_at ASC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

// ClearImageKey removes the cover key even from soft-deleted rows.
func (r *Repository) ClearImageKey(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Unscoped().Model(&entities.Book{}).Where("id = ?", id).Update("image_key", nil).Error
}
