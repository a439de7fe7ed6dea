// Package authors provides database operations for authors.
//
// # Usage
//
//	repo := authors.NewRepository(db)
//	matches, err := repo.FindByLabel(ctx, "sabahattin ali")
package authors

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/entities"
)

// Repository handles all author database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new authors repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// BookCount is an author with the number of active books referencing it.
type BookCount struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Surname   *string `json:"surname,omitempty"`
	BookCount int64   `json:"book_count"`
}

// SelectOption is the {label, value} shape used by select boxes.
type SelectOption struct {
	Label string `json:"label"`
	Value uint   `json:"value"`
}

func (r *Repository) Create(ctx context.Context, author *entities.Author) error {
	return r.db.WithContext(ctx).Create(author).Error
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Author, error) {
	var author entities.Author
	if err := r.db.WithContext(ctx).First(&author, id).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *Repository) List(ctx context.Context) ([]entities.Author, error) {
	var authors []entities.Author
	err := r.db.WithContext(ctx).Order("name ASC, surname ASC").Find(&authors).Error
	return authors, err
}

// FindByLabel returns authors whose "name surname" contains label. Matching
// runs on the Turkish-folded search column, so case never matters.
func (r *Repository) FindByLabel(ctx context.Context, label string) ([]entities.Author, error) {
	var authors []entities.Author
	err := r.db.WithContext(ctx).
		Where(`search_name LIKE ? ESCAPE '\'`, database.ContainsPattern(entities.SearchKey(label))).
		Find(&authors).Error
	return authors, err
}

// FindExact returns an author with exactly this name and surname, if any.
func (r *Repository) FindExact(ctx context.Context, name string, surname *string) (*entities.Author, error) {
	var author entities.Author
	query := r.db.WithContext(ctx).Where("name = ?", name)
	if surname == nil {
		query = query.Where("surname IS NULL OR surname = ''")
	} else {
		query = query.Where("surname = ?", *surname)
	}
	if err := query.First(&author).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *Repository) Update(ctx context.Context, author *entities.Author) error {
	return r.db.WithContext(ctx).Save(author).Error
}

func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entities.Author{}, id).Error
}

// CountBooks counts active books written by the author.
func (r *Repository) CountBooks(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Where("author_id = ?", id).Count(&count).Error
	return count, err
}

func (r *Repository) ListWithBookCounts(ctx context.Context) ([]BookCount, error) {
	var rows []BookCount
	err := r.db.WithContext(ctx).
		Table("authors").
		Select("authors.id, authors.name, authors.surname, COUNT(books.id) AS book_count").
		Joins("LEFT JOIN books ON books.author_id = authors.id AND books.deleted_at IS NULL").
		Group("authors.id, authors.name, authors.surname").
		Order("authors.name ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) ListSelect(ctx context.Context) ([]SelectOption, error) {
	authors, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]SelectOption, 0, len(authors))
	for _, a := range authors {
		options = append(options, SelectOption{Label: a.FullName(), Value: a.ID})
	}
	return options, nil
}
