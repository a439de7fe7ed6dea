package library

import (
	"context"
	"fmt"

	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/audit"
	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/database/authors"
	"github.com/mrlokans/kitaplik/internal/database/categories"
	"github.com/mrlokans/kitaplik/internal/database/publishers"
	"github.com/mrlokans/kitaplik/internal/entities"
)

const (
	msgAuthorExists    = "This author already exists."
	msgPublisherExists = "This publisher already exists."
	msgCategoryExists  = "This category already exists."
	msgAssociated      = "Associated records exist"
)

// AuthorInput carries the editable fields of an author.
type AuthorInput struct {
	Name    string
	Surname string
}

func (in AuthorInput) normalize() (string, *string, error) {
	name := CapitalizeWords(normalizeLabel(in.Name))
	if name == "" {
		return "", nil, apperror.Validation("Author must have a 'author name'")
	}
	var surname *string
	if s := CapitalizeWords(normalizeLabel(in.Surname)); s != "" {
		surname = &s
	}
	return name, surname, nil
}

func (s *Service) CreateAuthor(ctx context.Context, actor Actor, in AuthorInput) (_ *entities.Author, err error) {
	ctx, span := startSpan(ctx, "CreateAuthor", actor)
	defer func() { endSpan(span, err) }()

	if err := requireMember(actor); err != nil {
		return nil, err
	}
	name, surname, err := in.normalize()
	if err != nil {
		return nil, err
	}

	author := &entities.Author{Name: name, Surname: surname, OwnerUserID: actor.UserID}
	err = s.inTx(ctx, func(r *txRepos) error {
		if _, err := r.authors.FindExact(ctx, name, surname); err == nil {
			return apperror.Conflict(msgAuthorExists)
		} else if !database.IsNotFound(err) {
			return fmt.Errorf("failed to check author: %w", err)
		}
		if err := r.authors.Create(ctx, author); err != nil {
			return writeErr(err, "create author", msgAuthorExists)
		}
		return s.record(ctx, r, audit.Entry{UserID: actor.UserID, Event: entities.EventAuthorCreate, AuthorID: author.ID})
	})
	if err != nil {
		return nil, err
	}
	return author, nil
}

func (s *Service) GetAuthor(ctx context.Context, id uint) (*entities.Author, error) {
	author, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Author not found")
	}
	return author, nil
}

func (s *Service) ListAuthors(ctx context.Context) ([]entities.Author, error) {
	list, err := s.authors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return list, nil
}

// AuthorBooksCount lists authors with the number of active books by each.
func (s *Service) AuthorBooksCount(ctx context.Context) ([]authors.BookCount, error) {
	rows, err := s.authors.ListWithBookCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count author books: %w", err)
	}
	return rows, nil
}

// AuthorSelect lists authors as label/value pairs for pickers.
func (s *Service) AuthorSelect(ctx context.Context) ([]authors.SelectOption, error) {
	options, err := s.authors.ListSelect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list author options: %w", err)
	}
	return options, nil
}

func (s *Service) UpdateAuthor(ctx context.Context, actor Actor, id uint, in AuthorInput) (_ *entities.Author, err error) {
	ctx, span := startSpan(ctx, "UpdateAuthor", actor)
	defer func() { endSpan(span, err) }()

	name, surname, err := in.normalize()
	if err != nil {
		return nil, err
	}

	var author *entities.Author
	err = s.inTx(ctx, func(r *txRepos) error {
		var err error
		author, err = r.authors.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Author not found")
		}
		if err := requireOwner(actor, author.OwnerUserID, "author"); err != nil {
			return err
		}
		if existing, err := r.authors.FindExact(ctx, name, surname); err == nil && existing.ID != id {
			return apperror.Conflict(msgAuthorExists)
		}
		author.Name = name
		author.Surname = surname
		if err := r.authors.Update(ctx, author); err != nil {
			return writeErr(err, "update author", msgAuthorExists)
		}
		return s.record(ctx, r, audit.Entry{UserID: actor.UserID, Event: entities.EventAuthorUpdate, AuthorID: id})
	})
	if err != nil {
		return nil, err
	}
	return author, nil
}

// DeleteAuthor removes an author that no active book references.
func (s *Service) DeleteAuthor(ctx context.Context, actor Actor, id uint) (err error) {
	ctx, span := startSpan(ctx, "DeleteAuthor", actor)
	defer func() { endSpan(span, err) }()

	return s.inTx(ctx, func(r *txRepos) error {
		author, err := r.authors.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Author not found")
		}
		if err := requireOwner(actor, author.OwnerUserID, "author"); err != nil {
			return err
		}
		count, err := r.authors.CountBooks(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count author books: %w", err)
		}
		if count > 0 {
			return apperror.Conflict(msgAssociated)
		}
		if err := r.authors.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete author: %w", err)
		}
		return s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventAuthorDelete, AuthorID: id, Description: author.FullName(),
		})
	})
}

// resolveAuthor creates an author from a free-text label. A label that
// already partially matches an author is a conflict: callers must pick the
// existing author by id instead.
func (s *Service) resolveAuthor(ctx context.Context, r *txRepos, actor Actor, label string) (uint, error) {
	label = normalizeLabel(label)
	if label == "" {
		return 0, apperror.Validation("Author label is required")
	}
	matches, err := r.authors.FindByLabel(ctx, label)
	if err != nil {
		return 0, fmt.Errorf("failed to look up author: %w", err)
	}
	if len(matches) > 0 {
		return 0, apperror.Conflict("this author already exists.")
	}

	name, surname := SplitAuthorLabel(CapitalizeWords(label))
	author := &entities.Author{Name: name, Surname: surname, OwnerUserID: actor.UserID}
	if err := r.authors.Create(ctx, author); err != nil {
		return 0, writeErr(err, "create author", msgAuthorExists)
	}
	if err := s.record(ctx, r, audit.Entry{UserID: actor.UserID, Event: entities.EventAuthorCreate, AuthorID: author.ID}); err != nil {
		return 0, err
	}
	return author.ID, nil
}

func (s *Service) CreatePublisher(ctx context.Context, actor Actor, name string) (_ *entities.Publisher, err error) {
	ctx, span := startSpan(ctx, "CreatePublisher", actor)
	defer func() { endSpan(span, err) }()

	if err := requireMember(actor); err != nil {
		return nil, err
	}
	name = ToTurkishUpper(normalizeLabel(name))
	if name == "" {
		return nil, apperror.Validation("Missing parameters")
	}

	publisher := &entities.Publisher{Name: name, OwnerUserID: actor.UserID}
	err = s.inTx(ctx, func(r *txRepos) error {
		if _, err := r.publishers.FindExact(ctx, name); err == nil {
			return apperror.Conflict(msgPublisherExists)
		} else if !database.IsNotFound(err) {
			return fmt.Errorf("failed to check publisher: %w", err)
		}
		if err := r.publishers.Create(ctx, publisher); err != nil {
			return writeErr(err, "create publisher", msgPublisherExists)
		}
		return s.record(ctx, r, audit.Entry{UserID: actor.UserID, Event: entities.EventPublisherCreate, PublisherID: publisher.ID})
	})
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

func (s *Service) GetPublisher(ctx context.Context, id uint) (*entities.Publisher, error) {
	publisher, err := s.publishers.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Publisher not found")
	}
	return publisher, nil
}

func (s *Service) ListPublishers(ctx context.Context) ([]entities.Publisher, error) {
	list, err := s.publishers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list publishers: %w", err)
	}
	return list, nil
}

func (s *Service) PublisherBooksCount(ctx context.Context) ([]publishers.BookCount, error) {
	rows, err := s.publishers.ListWithBookCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count publisher books: %w", err)
	}
	return rows, nil
}

func (s *Service) UpdatePublisher(ctx context.Context, actor Actor, id uint, name string) (_ *entities.Publisher, err error) {
	ctx, span := startSpan(ctx, "UpdatePublisher", actor)
	defer func() { endSpan(span, err) }()

	name = ToTurkishUpper(normalizeLabel(name))
	if name == "" {
		return nil, apperror.Validation("Missing parameters")
	}

	var publisher *entities.Publisher
	err = s.inTx(ctx, func(r *txRepos) error {
		var err error
		publisher, err = r.publishers.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Publisher not found")
		}
		if err := requireOwner(actor, publisher.OwnerUserID, "publisher"); err != nil {
			return err
		}
		if existing, err := r.publishers.FindExact(ctx, name); err == nil && existing.ID != id {
			return apperror.Conflict(msgPublisherExists)
		}
		publisher.Name = name
		if err := r.publishers.Update(ctx, publisher); err != nil {
			return writeErr(err, "update publisher", msgPublisherExists)
		}
		return s.record(ctx, r, audit.Entry{UserID: actor.UserID, Event: entities.EventPublisherUpdate, PublisherID: id})
	})
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

func (s *Service) DeletePublisher(ctx context.Context, actor Actor, id uint) (err error) {
	ctx, span := startSpan(ctx, "DeletePublisher", actor)
	defer func() { endSpan(span, err) }()

	return s.inTx(ctx, func(r *txRepos) error {
		publisher, err := r.publishers.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Publisher not found")
		}
		if err := requireOwner(actor, publisher.OwnerUserID, "publisher"); err != nil {
			return err
		}
		count, err := r.publishers.CountBooks(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count publisher books: %w", err)
		}
		if count > 0 {
			return apperror.Conflict(msgAssociated)
		}
		if err := r.publishers.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete publisher: %w", err)
		}
		return s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventPublisherDelete, PublisherID: id, Description: publisher.Name,
		})
	})
}

func (s *Service) resolvePublisher(ctx context.Context, r *txRepos, actor Actor, label string) (uint, error) {
	name := ToTurkishUpper(normalizeLabel(label))
	if name == "" {
		return 0, apperror.Validation("Publisher label is required")
	}
	matches, err := r.publishers.FindByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to look up publisher: %w", err)
	}
	if len(matches) > 0 {
		return 0, apperror.Conflict(msgPublisherExists)
	}

	publisher := &entities.Publisher{Name: name, OwnerUserID: actor.UserID}
	if err := r.publishers.Create(ctx, publisher); err != nil {
		return 0, writeErr(err, "create publisher", msgPublisherExists)
	}
	if err := s.record(ctx, r, audit.Entry{UserID: actor.UserID, Event: entities.EventPublisherCreate, PublisherID: publisher.ID}); err != nil {
		return 0, err
	}
	return publisher.ID, nil
}

func (s *Service) CreateCategory(ctx context.Context, actor Actor, name string) (_ *entities.Category, err error) {
	ctx, span := startSpan(ctx, "CreateCategory", actor)
	defer func() { endSpan(span, err) }()

	if err := requireMember(actor); err != nil {
		return nil, err
	}
	name = FormatBookTitle(normalizeLabel(name))
	if name == "" {
		return nil, apperror.Validation("Missing parameters")
	}

	category := &entities.Category{Name: name, OwnerUserID: actor.UserID}
	err = s.inTx(ctx, func(r *txRepos) error {
		if _, err := r.categories.FindExact(ctx, name); err == nil {
			return apperror.Conflict(msgCategoryExists)
		} else if !database.IsNotFound(err) {
			return fmt.Errorf("failed to check category: %w", err)
		}
		if err := r.categories.Create(ctx, category); err != nil {
			return writeErr(err, "create category", msgCategoryExists)
		}
		return s.record(ctx, r, audit.Entry{UserID: actor.UserID, Event: entities.EventCategoryCreate, CategoryID: category.ID})
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]entities.Category, error) {
	list, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return list, nil
}

func (s *Service) CategoryBooksCount(ctx context.Context) ([]categories.BookCount, error) {
	rows, err := s.categories.ListWithBookCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count category books: %w", err)
	}
	return rows, nil
}

func (s *Service) UpdateCategory(ctx context.Context, actor Actor, id uint, name string) (_ *entities.Category, err error) {
	ctx, span := startSpan(ctx, "UpdateCategory", actor)
	defer func() { endSpan(span, err) }()

	name = FormatBookTitle(normalizeLabel(name))
	if name == "" {
		return nil, apperror.Validation("Missing parameters")
	}

	var category *entities.Category
	err = s.inTx(ctx, func(r *txRepos) error {
		var err error
		category, err = r.categories.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Category not found")
		}
		if err := requireOwner(actor, category.OwnerUserID, "category"); err != nil {
			return err
		}
		if existing, err := r.categories.FindExact(ctx, name); err == nil && existing.ID != id {
			return apperror.Conflict(msgCategoryExists)
		}
		category.Name = name
		if err := r.categories.Update(ctx, category); err != nil {
			return writeErr(err, "update category", msgCategoryExists)
		}
		return s.record(ctx, r, audit.Entry{UserID: actor.UserID, Event: entities.EventCategoryUpdate, CategoryID: id})
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Service) DeleteCategory(ctx context.Context, actor Actor, id uint) (err error) {
	ctx, span := startSpan(ctx, "DeleteCategory", actor)
	defer func() { endSpan(span, err) }()

	return s.inTx(ctx, func(r *txRepos) error {
		category, err := r.categories.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Category not found")
		}
		if err := requireOwner(actor, category.OwnerUserID, "category"); err != nil {
			return err
		}
		count, err := r.categories.CountBookLinks(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count category books: %w", err)
		}
		if count > 0 {
			return apperror.Conflict(msgAssociated)
		}
		if err := r.categories.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventCategoryDelete, CategoryID: id, Description: category.Name,
		})
	})
}

func (s *Service) resolveCategory(ctx context.Context, r *txRepos, actor Actor, label string) (uint, error) {
	name := FormatBookTitle(normalizeLabel(label))
	if name == "" {
		return 0, apperror.Validation("Category label is required")
	}
	matches, err := r.categories.FindByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to look up category: %w", err)
	}
	if len(matches) > 0 {
		return 0, apperror.Conflict(msgCategoryExists)
	}

	category := &entities.Category{Name: name, OwnerUserID: actor.UserID}
	if err := r.categories.Create(ctx, category); err != nil {
		return 0, writeErr(err, "create category", msgCategoryExists)
	}
	if err := s.record(ctx, r, audit.Entry{UserID: actor.UserID, Event: entities.EventCategoryCreate, CategoryID: category.ID}); err != nil {
		return 0, err
	}
	return category.ID, nil
}
