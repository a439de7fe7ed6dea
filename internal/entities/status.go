package entities

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidStatus is returned when a status key does not name a known lifecycle state.
var ErrInvalidStatus = errors.New("invalid status")

// StatusID identifies a lifecycle state shared by books and readings.
// The numeric values are persisted and must never be renumbered.
type StatusID uint

const (
	StatusReading              StatusID = 1
	StatusInLibrary            StatusID = 2
	StatusFinished             StatusID = 3
	StatusAbandoned            StatusID = 4
	StatusToBuy                StatusID = 6
	StatusFinishedNotInLibrary StatusID = 7
	StatusNotInLibrary         StatusID = 11
)

// AllStatuses lists every lifecycle state in id order.
var AllStatuses = []StatusID{
	StatusReading,
	StatusInLibrary,
	StatusFinished,
	StatusAbandoned,
	StatusToBuy,
	StatusFinishedNotInLibrary,
	StatusNotInLibrary,
}

// Name returns the machine name of the status, or "" for unknown values.
func (s StatusID) Name() string {
	switch s {
	case StatusReading:
		return "reading"
	case StatusInLibrary:
		return "in_library"
	case StatusFinished:
		return "finished"
	case StatusAbandoned:
		return "abandoned"
	case StatusToBuy:
		return "to_buy"
	case StatusFinishedNotInLibrary:
		return "finished_not_in_library"
	case StatusNotInLibrary:
		return "not_in_library"
	default:
		return ""
	}
}

// Label returns the display label stored in the lookup table.
func (s StatusID) Label() string {
	switch s {
	case StatusReading:
		return "Okunuyor"
	case StatusInLibrary:
		return "Kitaplıkta"
	case StatusFinished:
		return "Okundu"
	case StatusAbandoned:
		return "Yarım Bırakıldı"
	case StatusToBuy:
		return "Satın Alınacak"
	case StatusFinishedNotInLibrary:
		return "Okundu Kitaplıkta Değil"
	case StatusNotInLibrary:
		return "Kitaplıkta Değil"
	default:
		return ""
	}
}

func (s StatusID) Valid() bool {
	return s.Name() != ""
}

func (s StatusID) String() string {
	if name := s.Name(); name != "" {
		return name
	}
	return "status(" + strconv.FormatUint(uint64(s), 10) + ")"
}

// ParseStatus accepts either the numeric key ("6") or the machine name ("to_buy").
func ParseStatus(key string) (StatusID, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, ErrInvalidStatus
	}
	if n, err := strconv.ParseUint(key, 10, 32); err == nil {
		s := StatusID(n)
		if !s.Valid() {
			return 0, ErrInvalidStatus
		}
		return s, nil
	}
	for _, s := range AllStatuses {
		if s.Name() == strings.ToLower(key) {
			return s, nil
		}
	}
	return 0, ErrInvalidStatus
}

// Status is the lookup row for a StatusID.
type Status struct {
	ID    StatusID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name  string   `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Label string   `gorm:"size:100" json:"label"`
}

func (Status) TableName() string {
	return "statuses"
}
