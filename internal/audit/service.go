// Package audit writes the append-only activity log.
//
// Mutations record their log row inside the caller's transaction so that the
// row commits or rolls back together with the change it describes:
//
//	err := db.Transaction(func(tx *gorm.DB) error {
//		// ... create the book ...
//		return auditSvc.Record(ctx, tx, audit.Entry{
//			UserID: actor.UserID,
//			Event:  entities.EventBookCreate,
//			BookID: book.ID,
//		})
//	})
//
// Standalone events such as failed logins use RecordAsync.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mrlokans/kitaplik/internal/database/logs"
	"github.com/mrlokans/kitaplik/internal/entities"
)

// Entry is one event to record. Zero ids are stored as NULL.
type Entry struct {
	UserID      uint
	Event       entities.EventTypeID
	BookID      uint
	AuthorID    uint
	CategoryID  uint
	PublisherID uint
	ReadingID   uint
	Description string
	Details     map[string]any
}

// Service provides audit logging on top of the logs repository.
type Service struct {
	repo *logs.Repository
	wg   sync.WaitGroup
}

func NewService(repo *logs.Repository) *Service {
	return &Service{repo: repo}
}

// Record writes the entry using tx. A nil tx writes outside any transaction.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	row, err := buildLog(ctx, entry)
	if err != nil {
		return err
	}

	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	if err := repo.Create(ctx, row); err != nil {
		return fmt.Errorf("failed to record %s event: %w", entry.Event, err)
	}
	return nil
}

// RecordAsync records an event in the background (non-blocking).
func (s *Service) RecordAsync(ctx context.Context, entry Entry) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Record(ctx, nil, entry); err != nil {
			log.Printf("[AUDIT] Failed to log event: %v", err)
		}
	}()
}

// Wait blocks until all pending RecordAsync writes have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// List retrieves paginated log rows, most recent first.
func (s *Service) List(ctx context.Context, filter logs.Filter) ([]entities.Log, int64, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list logs: %w", err)
	}
	return entries, total, nil
}

func buildLog(ctx context.Context, entry Entry) (*entities.Log, error) {
	if !entry.Event.Valid() {
		return nil, fmt.Errorf("unknown event type %d", entry.Event)
	}

	row := &entities.Log{
		UserID:      optionalID(entry.UserID),
		EventTypeID: entry.Event,
		BookID:      optionalID(entry.BookID),
		AuthorID:    optionalID(entry.AuthorID),
		CategoryID:  optionalID(entry.CategoryID),
		PublisherID: optionalID(entry.PublisherID),
		ReadingID:   optionalID(entry.ReadingID),
		Description: truncate(entry.Description, 1000),
	}

	metadata := make(map[string]any, len(entry.Details)+3)
	for k, v := range entry.Details {
		metadata[k] = v
	}
	if info, ok := RequestInfoFrom(ctx); ok {
		if info.RequestID != "" {
			metadata["request_id"] = info.RequestID
		}
		if info.IP != "" {
			metadata["ip"] = info.IP
		}
		if info.UserAgent != "" {
			metadata["user_agent"] = truncate(info.UserAgent, 500)
		}
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode log metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(raw)
	}
	return row, nil
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

// truncate shortens s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
