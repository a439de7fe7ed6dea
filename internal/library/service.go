// Package library implements the catalogue and reading workflows: books,
// authors, publishers, categories and per-user readings.
//
// Every mutation runs in one database transaction together with the audit
// log rows it produces, so a failed operation leaves no partial state.
//
// # Usage
//
//	svc := library.NewService(db, library.Dependencies{Audit: auditSvc})
//	book, err := svc.CreateBook(ctx, actor, library.CreateBookInput{
//		Title:  "Kürk Mantolu Madonna",
//		Author: library.Ref{Label: "Sabahattin Ali"},
//		Status: "reading",
//	}, nil)
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/audit"
	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/database/authors"
	"github.com/mrlokans/kitaplik/internal/database/books"
	"github.com/mrlokans/kitaplik/internal/database/categories"
	"github.com/mrlokans/kitaplik/internal/database/publishers"
	"github.com/mrlokans/kitaplik/internal/database/readings"
	"github.com/mrlokans/kitaplik/internal/entities"
)

var tracer = otel.Tracer("github.com/mrlokans/kitaplik/internal/library")

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID    uint
	Authority entities.AuthorityID
}

// CoverStore persists normalized cover images.
type CoverStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CoverNormalizer converts an uploaded image into the stored cover format.
type CoverNormalizer interface {
	Normalize(data []byte) ([]byte, error)
	ContentType() string
	Extension() string
}

// CoverDeleter removes stored cover objects in the background.
type CoverDeleter interface {
	EnqueueCoverDeletion(ctx context.Context, key string) error
}

// Dependencies are the collaborators of a Service. Covers, Store and
// Deleter may be nil, which disables cover uploads.
type Dependencies struct {
	Audit    *audit.Service
	Store    CoverStore
	Covers   CoverNormalizer
	Deleter  CoverDeleter
	CoverTTL time.Duration
}

// Service implements the library workflows.
type Service struct {
	db   *gorm.DB
	deps Dependencies

	authors    *authors.Repository
	publishers *publishers.Repository
	categories *categories.Repository
	books      *books.Repository
	readings   *readings.Repository
}

func NewService(db *gorm.DB, deps Dependencies) *Service {
	if deps.CoverTTL <= 0 {
		deps.CoverTTL = time.Hour
	}
	return &Service{
		db:         db,
		deps:       deps,
		authors:    authors.NewRepository(db),
		publishers: publishers.NewRepository(db),
		categories: categories.NewRepository(db),
		books:      books.NewRepository(db),
		readings:   readings.NewRepository(db),
	}
}

// txRepos bundles repositories bound to one transaction.
type txRepos struct {
	tx         *gorm.DB
	authors    *authors.Repository
	publishers *publishers.Repository
	categories *categories.Repository
	books      *books.Repository
	readings   *readings.Repository
}

func (s *Service) inTx(ctx context.Context, fn func(r *txRepos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepos{
			tx:         tx,
			authors:    s.authors.WithTx(tx),
			publishers: s.publishers.WithTx(tx),
			categories: s.categories.WithTx(tx),
			books:      s.books.WithTx(tx),
			readings:   s.readings.WithTx(tx),
		})
	})
}

func (s *Service) record(ctx context.Context, r *txRepos, entry audit.Entry) error {
	if s.deps.Audit == nil {
		return nil
	}
	return s.deps.Audit.Record(ctx, r.tx, entry)
}

func startSpan(ctx context.Context, name string, actor Actor) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "library."+name)
	if actor.UserID != 0 {
		span.SetAttributes(attribute.Int64("kitaplik.user_id", int64(actor.UserID)))
	}
	return ctx, span
}

// endSpan records err on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// lookupErr turns a missing row into a NotFound error and wraps everything else.
func lookupErr(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if database.IsNotFound(err) {
		return apperror.NotFound(notFoundMsg)
	}
	return fmt.Errorf("failed to load record: %w", err)
}

// writeErr classifies errors from inserts and updates.
func writeErr(err error, action, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if database.IsUniqueViolation(err) {
		return apperror.Conflict(conflictMsg)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func requireOwner(actor Actor, ownerID uint, what string) error {
	if err := requireMember(actor); err != nil {
		return err
	}
	if ownerID != actor.UserID {
		return apperror.Forbidden("You are not allowed to modify this " + what)
	}
	return nil
}

func requireMember(actor Actor) error {
	if actor.UserID == 0 {
		return apperror.Unauthenticated("User not authenticated")
	}
	if actor.Authority == entities.AuthorityGuest {
		return apperror.Forbidden("Guests cannot modify the library")
	}
	return nil
}

// signCover fills CoverURL for a book that has a stored cover.
func (s *Service) signCover(ctx context.Context, book *entities.Book) {
	if book == nil || !book.HasCover() || s.deps.Store == nil {
		return
	}
	url, err := s.deps.Store.SignedURL(ctx, *book.ImageKey, s.deps.CoverTTL)
	if err != nil {
		log.Printf("[LIBRARY] Failed to sign cover URL for book %d: %v", book.ID, err)
		return
	}
	book.CoverURL = url
}

func (s *Service) enqueueDelete(ctx context.Context, key string) {
	if s.deps.Deleter == nil || key == "" {
		return
	}
	if err := s.deps.Deleter.EnqueueCoverDeletion(ctx, key); err != nil {
		log.Printf("[LIBRARY] Failed to enqueue cover deletion for %s: %v", key, err)
	}
}
