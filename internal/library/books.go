package library

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/audit"
	"github.com/mrlokans/kitaplik/internal/database/books"
	"github.com/mrlokans/kitaplik/internal/entities"
)

// Ref points at an existing row by Key or names a new one by Label.
type Ref struct {
	Key   uint
	Label string
}

func (r Ref) empty() bool {
	return r.Key == 0 && strings.TrimSpace(r.Label) == ""
}

type CreateBookInput struct {
	Title      string
	Summary    string
	ISBN       string
	Author     Ref
	Publisher  *Ref
	Status     string
	Categories []Ref
}

// UpdateBookInput holds the fields to change. Nil fields are left as they are.
type UpdateBookInput struct {
	Title       *string
	Summary     *string
	ISBN        *string
	AuthorID    *uint
	PublisherID *uint
	Status      *string
}

// CoverUpload is a raw image received from a client.
type CoverUpload struct {
	Data     []byte
	Filename string
}

type normalizedCover struct {
	data   []byte
	key    string
	stored bool
}

func (s *Service) prepareCover(bookID uint, upload *CoverUpload) (*normalizedCover, error) {
	if upload == nil || len(upload.Data) == 0 {
		return nil, nil
	}
	if s.deps.Covers == nil || s.deps.Store == nil {
		return nil, apperror.Unavailable("Cover storage is not configured", nil)
	}
	data, err := s.deps.Covers.Normalize(upload.Data)
	if err != nil {
		return nil, err
	}
	cover := &normalizedCover{data: data}
	if bookID != 0 {
		cover.key = coverKey(bookID, s.deps.Covers.Extension())
	}
	return cover, nil
}

func coverKey(bookID uint, ext string) string {
	return fmt.Sprintf("books/%d/%s%s", bookID, uuid.NewString(), ext)
}

func (s *Service) putCover(ctx context.Context, cover *normalizedCover) error {
	if err := s.deps.Store.Put(ctx, cover.key, bytes.NewReader(cover.data), s.deps.Covers.ContentType()); err != nil {
		return apperror.Unavailable("Cover image could not be stored", err)
	}
	cover.stored = true
	return nil
}

// CreateBook adds a book to the catalogue. The requested status decides the
// stored book status and whether the creator gets a reading for it. Author,
// publisher and categories given by label are created in the same
// transaction.
func (s *Service) CreateBook(ctx context.Context, actor Actor, in CreateBookInput, upload *CoverUpload) (_ *entities.Book, err error) {
	ctx, span := startSpan(ctx, "CreateBook", actor)
	defer func() { endSpan(span, err) }()

	if err := requireMember(actor); err != nil {
		return nil, err
	}
	title := normalizeLabel(in.Title)
	if title == "" || in.Author.empty() || strings.TrimSpace(in.Status) == "" {
		return nil, apperror.Validation("Missing parameters")
	}
	requested, err := entities.ParseStatus(in.Status)
	if err != nil {
		return nil, apperror.Validation("Invalid status")
	}
	outcome, err := CreationOutcome(requested)
	if err != nil {
		return nil, err
	}
	cover, err := s.prepareCover(0, upload)
	if err != nil {
		return nil, err
	}

	book := &entities.Book{
		Title:       title,
		Summary:     strings.TrimSpace(in.Summary),
		ISBN:        strings.TrimSpace(in.ISBN),
		StatusID:    outcome.BookStatus,
		OwnerUserID: actor.UserID,
	}

	err = s.inTx(ctx, func(r *txRepos) error {
		authorID, err := s.authorRef(ctx, r, actor, in.Author)
		if err != nil {
			return err
		}
		book.AuthorID = authorID

		if in.Publisher != nil && !in.Publisher.empty() {
			publisherID, err := s.publisherRef(ctx, r, actor, *in.Publisher)
			if err != nil {
				return err
			}
			book.PublisherID = &publisherID
		}

		categoryIDs, err := s.categoryRefs(ctx, r, actor, in.Categories)
		if err != nil {
			return err
		}

		if err := r.books.Create(ctx, book); err != nil {
			return writeErr(err, "create book", "This book already exists.")
		}
		if err := r.books.LinkCategories(ctx, book.ID, categoryIDs); err != nil {
			return fmt.Errorf("failed to link categories: %w", err)
		}
		if len(categoryIDs) > 0 {
			if err := s.record(ctx, r, audit.Entry{
				UserID: actor.UserID, Event: entities.EventBookCategoryCreate, BookID: book.ID,
				Details: map[string]any{"category_ids": categoryIDs},
			}); err != nil {
				return err
			}
		}

		if outcome.CreatesReading {
			reading := &entities.Reading{UserID: actor.UserID, BookID: book.ID, StatusID: outcome.ReadingStatus}
			if err := r.readings.Create(ctx, reading); err != nil {
				return writeErr(err, "create reading", msgReadingExists)
			}
			if err := s.record(ctx, r, audit.Entry{
				UserID: actor.UserID, Event: entities.EventReadingCreate, BookID: book.ID, ReadingID: reading.ID,
			}); err != nil {
				return err
			}
		}

		if err := s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventBookCreate, BookID: book.ID, Description: book.Title,
			Details: map[string]any{"requested_status": requested.Name()},
		}); err != nil {
			return err
		}

		if cover != nil {
			cover.key = coverKey(book.ID, s.deps.Covers.Extension())
			if err := s.putCover(ctx, cover); err != nil {
				return err
			}
			if err := r.books.SetImageKey(ctx, book.ID, &cover.key); err != nil {
				return fmt.Errorf("failed to save cover key: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if cover != nil && cover.stored {
			s.enqueueDelete(ctx, cover.key)
		}
		return nil, err
	}

	return s.GetBook(ctx, book.ID)
}

func (s *Service) authorRef(ctx context.Context, r *txRepos, actor Actor, ref Ref) (uint, error) {
	if ref.Key == 0 {
		return s.resolveAuthor(ctx, r, actor, ref.Label)
	}
	if _, err := r.authors.GetByID(ctx, ref.Key); err != nil {
		return 0, lookupErr(err, "Author not found")
	}
	return ref.Key, nil
}

func (s *Service) publisherRef(ctx context.Context, r *txRepos, actor Actor, ref Ref) (uint, error) {
	if ref.Key == 0 {
		return s.resolvePublisher(ctx, r, actor, ref.Label)
	}
	if _, err := r.publishers.GetByID(ctx, ref.Key); err != nil {
		return 0, lookupErr(err, "Publisher not found")
	}
	return ref.Key, nil
}

// categoryRefs resolves every ref to an id, creating labelled categories.
// Duplicate ids are dropped.
func (s *Service) categoryRefs(ctx context.Context, r *txRepos, actor Actor, refs []Ref) ([]uint, error) {
	ids := make([]uint, 0, len(refs))
	seen := make(map[uint]bool, len(refs))
	var keys []uint

	for _, ref := range refs {
		if ref.empty() {
			continue
		}
		id := ref.Key
		if id == 0 {
			var err error
			id, err = s.resolveCategory(ctx, r, actor, ref.Label)
			if err != nil {
				return nil, err
			}
		} else {
			keys = append(keys, id)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(keys) > 0 {
		unique := uniqueIDs(keys)
		count, err := r.categories.CountExisting(ctx, unique)
		if err != nil {
			return nil, fmt.Errorf("failed to check categories: %w", err)
		}
		if count != int64(len(unique)) {
			return nil, apperror.NotFound("Category not found")
		}
	}
	return ids, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// GetBook returns an active book with its associations and a signed cover URL.
func (s *Service) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Book not found")
	}
	s.signCover(ctx, book)
	return book, nil
}

func (s *Service) ListBooks(ctx context.Context, filter books.ListFilter) ([]entities.Book, int64, error) {
	list, total, err := s.books.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	for i := range list {
		s.signCover(ctx, &list[i])
	}
	return list, total, nil
}

func (s *Service) UpdateBook(ctx context.Context, actor Actor, id uint, in UpdateBookInput) (_ *entities.Book, err error) {
	ctx, span := startSpan(ctx, "UpdateBook", actor)
	defer func() { endSpan(span, err) }()

	err = s.inTx(ctx, func(r *txRepos) error {
		book, err := r.books.GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Book not found")
		}
		if err := requireOwner(actor, book.OwnerUserID, "book"); err != nil {
			return err
		}

		changes := map[string]any{}
		if in.Title != nil {
			title := normalizeLabel(*in.Title)
			if title == "" {
				return apperror.Validation("Book must have a title")
			}
			book.Title = title
			changes["title"] = title
		}
		if in.Summary != nil {
			book.Summary = strings.TrimSpace(*in.Summary)
			changes["summary"] = true
		}
		if in.ISBN != nil {
			book.ISBN = strings.TrimSpace(*in.ISBN)
			changes["isbn"] = book.ISBN
		}
		if in.AuthorID != nil {
			if _, err := r.authors.GetByID(ctx, *in.AuthorID); err != nil {
				return lookupErr(err, "Author not found")
			}
			book.AuthorID = *in.AuthorID
			changes["author_id"] = *in.AuthorID
		}
		if in.PublisherID != nil {
			if *in.PublisherID == 0 {
				book.PublisherID = nil
			} else {
				if _, err := r.publishers.GetByID(ctx, *in.PublisherID); err != nil {
					return lookupErr(err, "Publisher not found")
				}
				publisherID := *in.PublisherID
				book.PublisherID = &publisherID
			}
			changes["publisher_id"] = *in.PublisherID
		}
		if in.Status != nil {
			status, err := entities.ParseStatus(*in.Status)
			if err != nil {
				return apperror.Validation("Invalid status")
			}
			book.StatusID = status
			changes["status"] = status.Name()
		}

		if err := r.books.Update(ctx, book); err != nil {
			return fmt.Errorf("failed to update book: %w", err)
		}
		return s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventBookUpdate, BookID: id, Details: changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetBook(ctx, id)
}

// DeleteBook soft-deletes a book and its category links. Books that still
// have readings cannot be deleted. The cover object is kept until the
// retention sweep removes it.
func (s *Service) DeleteBook(ctx context.Context, actor Actor, id uint) (err error) {
	ctx, span := startSpan(ctx, "DeleteBook", actor)
	defer func() { endSpan(span, err) }()

	return s.inTx(ctx, func(r *txRepos) error {
		book, err := r.books.GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Book not found")
		}
		if err := requireOwner(actor, book.OwnerUserID, "book"); err != nil {
			return err
		}
		count, err := r.books.CountReadings(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count readings: %w", err)
		}
		if count > 0 {
			return apperror.Conflict(msgAssociated)
		}
		if err := r.books.SoftDelete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete book: %w", err)
		}
		return s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventBookDelete, BookID: id, Description: book.Title,
		})
	})
}

// SetBookCategories replaces the categories of a book.
func (s *Service) SetBookCategories(ctx context.Context, actor Actor, id uint, refs []Ref) (_ *entities.Book, err error) {
	ctx, span := startSpan(ctx, "SetBookCategories", actor)
	defer func() { endSpan(span, err) }()

	err = s.inTx(ctx, func(r *txRepos) error {
		book, err := r.books.GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Book not found")
		}
		if err := requireOwner(actor, book.OwnerUserID, "book"); err != nil {
			return err
		}
		ids, err := s.categoryRefs(ctx, r, actor, refs)
		if err != nil {
			return err
		}
		if err := r.books.ReplaceCategories(ctx, id, ids); err != nil {
			return fmt.Errorf("failed to replace categories: %w", err)
		}
		return s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventBookCategoryUpdate, BookID: id,
			Details: map[string]any{"category_ids": ids},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetBook(ctx, id)
}

// UploadCover stores a new cover for the book. The previous cover object is
// queued for deletion once the new key is committed.
func (s *Service) UploadCover(ctx context.Context, actor Actor, id uint, upload *CoverUpload) (_ *entities.Book, err error) {
	ctx, span := startSpan(ctx, "UploadCover", actor)
	defer func() { endSpan(span, err) }()

	if upload == nil || len(upload.Data) == 0 {
		return nil, apperror.Validation("Image is required")
	}
	cover, err := s.prepareCover(id, upload)
	if err != nil {
		return nil, err
	}

	var oldKey string
	err = s.inTx(ctx, func(r *txRepos) error {
		book, err := r.books.GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Book not found")
		}
		if err := requireOwner(actor, book.OwnerUserID, "book"); err != nil {
			return err
		}
		if book.HasCover() {
			oldKey = *book.ImageKey
		}
		if err := s.putCover(ctx, cover); err != nil {
			return err
		}
		if err := r.books.SetImageKey(ctx, id, &cover.key); err != nil {
			return fmt.Errorf("failed to save cover key: %w", err)
		}
		return s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventBookUpdate, BookID: id,
			Details: map[string]any{"cover": cover.key},
		})
	})
	if err != nil {
		if cover.stored {
			s.enqueueDelete(ctx, cover.key)
		}
		return nil, err
	}
	s.enqueueDelete(ctx, oldKey)
	return s.GetBook(ctx, id)
}
