package library

import (
	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/entities"
)

// Outcome is what a book creation stores for a requested status.
type Outcome struct {
	BookStatus     entities.StatusID
	ReadingStatus  entities.StatusID
	CreatesReading bool
}

// CreationOutcome maps the status a client asks for when adding a book to
// the status stored on the book and the reading created for the creator.
// Finished and abandoned books stay on the shelf, so the book itself goes
// back to in_library while the reading keeps the outcome.
func CreationOutcome(requested entities.StatusID) (Outcome, error) {
	switch requested {
	case entities.StatusReading:
		return Outcome{BookStatus: entities.StatusReading, ReadingStatus: entities.StatusReading, CreatesReading: true}, nil
	case entities.StatusInLibrary, entities.StatusToBuy:
		return Outcome{BookStatus: entities.StatusToBuy}, nil
	case entities.StatusFinished, entities.StatusAbandoned:
		return Outcome{BookStatus: entities.StatusInLibrary, ReadingStatus: requested, CreatesReading: true}, nil
	case entities.StatusFinishedNotInLibrary:
		return Outcome{BookStatus: entities.StatusNotInLibrary, ReadingStatus: entities.StatusFinished, CreatesReading: true}, nil
	case entities.StatusNotInLibrary:
		return Outcome{BookStatus: entities.StatusNotInLibrary}, nil
	default:
		return Outcome{}, apperror.Validation("Invalid status")
	}
}

// IsReadingStatus reports whether s may be stored on a reading.
func IsReadingStatus(s entities.StatusID) bool {
	switch s {
	case entities.StatusReading, entities.StatusFinished, entities.StatusAbandoned:
		return true
	case entities.StatusInLibrary, entities.StatusToBuy, entities.StatusFinishedNotInLibrary, entities.StatusNotInLibrary:
		return false
	default:
		return false
	}
}

// ReadingTransition returns the book status implied by a reading moving
// from one status to another. changed is false when the book is untouched.
func ReadingTransition(from, to entities.StatusID) (entities.StatusID, bool, error) {
	if !IsReadingStatus(to) {
		return 0, false, apperror.Validation("Invalid reading status")
	}

	switch from {
	case entities.StatusReading:
		if to == entities.StatusFinished || to == entities.StatusAbandoned {
			return entities.StatusInLibrary, true, nil
		}
		return 0, false, nil
	case entities.StatusFinished, entities.StatusAbandoned:
		if to == entities.StatusReading {
			return entities.StatusReading, true, nil
		}
		return 0, false, nil
	case entities.StatusInLibrary, entities.StatusToBuy, entities.StatusFinishedNotInLibrary, entities.StatusNotInLibrary:
		return 0, false, apperror.InvalidEnum("reading status", from)
	default:
		return 0, false, apperror.InvalidEnum("reading status", from)
	}
}

// ClaimOnStart returns the book status after a user starts reading it.
// A book someone is already reading cannot be claimed again.
func ClaimOnStart(book entities.StatusID) (entities.StatusID, bool, error) {
	switch book {
	case entities.StatusToBuy, entities.StatusNotInLibrary, entities.StatusInLibrary:
		return entities.StatusReading, true, nil
	case entities.StatusReading:
		return 0, false, apperror.Conflict("Someone is already reading this book")
	case entities.StatusFinished, entities.StatusAbandoned, entities.StatusFinishedNotInLibrary:
		return 0, false, nil
	default:
		return 0, false, apperror.InvalidEnum("book status", book)
	}
}
