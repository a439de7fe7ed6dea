package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/audit"
	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/entities"
)

const msgReadingExists = "You already added this book"

type UpdateReadingInput struct {
	Status  *string
	Comment *string
}

func parseReadingStatus(key string) (entities.StatusID, error) {
	status, err := entities.ParseStatus(key)
	if err != nil || !IsReadingStatus(status) {
		return 0, apperror.Validation("Invalid reading status")
	}
	return status, nil
}

// setBookStatus moves a book to a new status and logs the change.
func (s *Service) setBookStatus(ctx context.Context, r *txRepos, actor Actor, book *entities.Book, status entities.StatusID, reason string) error {
	if err := r.books.UpdateStatus(ctx, book.ID, status); err != nil {
		return fmt.Errorf("failed to update book status: %w", err)
	}
	from := book.StatusID
	book.StatusID = status
	return s.record(ctx, r, audit.Entry{
		UserID: actor.UserID, Event: entities.EventBookUpdate, BookID: book.ID, Description: reason,
		Details: map[string]any{"from_status": from.Name(), "to_status": status.Name()},
	})
}

// AddReading starts tracking a book for the actor. Starting to read a book
// that is on the shelf, on the wish list or not owned claims it.
func (s *Service) AddReading(ctx context.Context, actor Actor, bookID uint, statusKey string) (_ *entities.Reading, err error) {
	ctx, span := startSpan(ctx, "AddReading", actor)
	defer func() { endSpan(span, err) }()

	if actor.UserID == 0 {
		return nil, apperror.Unauthenticated("User not authenticated")
	}
	if bookID == 0 || strings.TrimSpace(statusKey) == "" {
		return nil, apperror.Validation("Missing parameters")
	}
	status, err := parseReadingStatus(statusKey)
	if err != nil {
		return nil, err
	}

	reading := &entities.Reading{UserID: actor.UserID, BookID: bookID, StatusID: status}
	err = s.inTx(ctx, func(r *txRepos) error {
		if _, err := r.readings.FindByUserAndBook(ctx, actor.UserID, bookID); err == nil {
			return apperror.Conflict(msgReadingExists)
		} else if !database.IsNotFound(err) {
			return fmt.Errorf("failed to check reading: %w", err)
		}

		book, err := r.books.GetForUpdate(ctx, bookID)
		if err != nil {
			return lookupErr(err, "Book not found")
		}

		if status == entities.StatusReading {
			next, claim, err := ClaimOnStart(book.StatusID)
			if err != nil {
				return err
			}
			if claim {
				if err := s.setBookStatus(ctx, r, actor, book, next, "reading started"); err != nil {
					return err
				}
			}
		}

		if err := r.readings.Create(ctx, reading); err != nil {
			return writeErr(err, "create reading", msgReadingExists)
		}
		return s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventReadingCreate, BookID: bookID, ReadingID: reading.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return reading, nil
}

// ownReading loads a reading and checks that it belongs to the actor.
func ownReading(ctx context.Context, r *txRepos, actor Actor, id uint) (*entities.Reading, error) {
	if actor.UserID == 0 {
		return nil, apperror.Unauthenticated("User not authenticated")
	}
	reading, err := r.readings.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Reading not found")
	}
	if reading.UserID != actor.UserID {
		return nil, apperror.Forbidden("You are not allowed to modify this reading")
	}
	return reading, nil
}

// UpdateReading changes the status or comment of the actor's reading and
// moves the book along when the reading starts or stops.
func (s *Service) UpdateReading(ctx context.Context, actor Actor, id uint, in UpdateReadingInput) (_ *entities.Reading, err error) {
	ctx, span := startSpan(ctx, "UpdateReading", actor)
	defer func() { endSpan(span, err) }()

	var reading *entities.Reading
	err = s.inTx(ctx, func(r *txRepos) error {
		var err error
		reading, err = ownReading(ctx, r, actor, id)
		if err != nil {
			return err
		}

		from := reading.StatusID
		if in.Status != nil {
			to, err := parseReadingStatus(*in.Status)
			if err != nil {
				return err
			}
			bookStatus, changed, err := ReadingTransition(from, to)
			if err != nil {
				return err
			}
			if changed {
				book, err := r.books.GetForUpdate(ctx, reading.BookID)
				if err != nil {
					return lookupErr(err, "Book not found")
				}
				if err := s.setBookStatus(ctx, r, actor, book, bookStatus, "reading status changed"); err != nil {
					return err
				}
			}
			reading.StatusID = to
		}
		if in.Comment != nil {
			comment := strings.TrimSpace(*in.Comment)
			if comment == "" {
				reading.Comment = nil
			} else {
				reading.Comment = &comment
			}
		}

		if err := r.readings.Update(ctx, reading); err != nil {
			return fmt.Errorf("failed to update reading: %w", err)
		}
		return s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventReadingUpdate, BookID: reading.BookID, ReadingID: id,
			Details: map[string]any{"from_status": from.Name(), "to_status": reading.StatusID.Name()},
		})
	})
	if err != nil {
		return nil, err
	}
	return reading, nil
}

// RemoveReading soft-deletes the actor's reading. Removing an in-progress
// reading puts the book back on the shelf.
func (s *Service) RemoveReading(ctx context.Context, actor Actor, id uint) (err error) {
	ctx, span := startSpan(ctx, "RemoveReading", actor)
	defer func() { endSpan(span, err) }()

	return s.inTx(ctx, func(r *txRepos) error {
		reading, err := ownReading(ctx, r, actor, id)
		if err != nil {
			return err
		}

		if reading.StatusID == entities.StatusReading {
			book, err := r.books.GetForUpdate(ctx, reading.BookID)
			if err != nil && !database.IsNotFound(err) {
				return fmt.Errorf("failed to load book: %w", err)
			}
			if book != nil {
				if err := s.setBookStatus(ctx, r, actor, book, entities.StatusInLibrary, "reading removed"); err != nil {
					return err
				}
			}
		}

		if err := r.readings.SoftDelete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete reading: %w", err)
		}
		return s.record(ctx, r, audit.Entry{
			UserID: actor.UserID, Event: entities.EventReadingDelete, BookID: reading.BookID, ReadingID: id,
		})
	})
}

// ListMyReadings returns the actor's readings, most recently updated first.
func (s *Service) ListMyReadings(ctx context.Context, actor Actor) ([]entities.Reading, error) {
	if actor.UserID == 0 {
		return nil, apperror.Unauthenticated("User not authenticated")
	}
	list, err := s.readings.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	for i := range list {
		s.signCover(ctx, list[i].Book)
	}
	return list, nil
}
