package http

import (
	"context"

	"github.com/mrlokans/kitaplik/internal/auth"
	"github.com/mrlokans/kitaplik/internal/database/authors"
	"github.com/mrlokans/kitaplik/internal/database/books"
	"github.com/mrlokans/kitaplik/internal/database/categories"
	"github.com/mrlokans/kitaplik/internal/database/logs"
	"github.com/mrlokans/kitaplik/internal/database/publishers"
	"github.com/mrlokans/kitaplik/internal/entities"
	"github.com/mrlokans/kitaplik/internal/library"
)

// Each controller depends on the narrow interface it uses. library.Service
// and auth.Service satisfy them in production.

// AuthorService backs the /api/authors endpoints.
type AuthorService interface {
	CreateAuthor(ctx context.Context, actor library.Actor, in library.AuthorInput) (*entities.Author, error)
	GetAuthor(ctx context.Context, id uint) (*entities.Author, error)
	ListAuthors(ctx context.Context) ([]entities.Author, error)
	AuthorBooksCount(ctx context.Context) ([]authors.BookCount, error)
	AuthorSelect(ctx context.Context) ([]authors.SelectOption, error)
	UpdateAuthor(ctx context.Context, actor library.Actor, id uint, in library.AuthorInput) (*entities.Author, error)
	DeleteAuthor(ctx context.Context, actor library.Actor, id uint) error
}

// PublisherService backs the /api/publishers endpoints.
type PublisherService interface {
	CreatePublisher(ctx context.Context, actor library.Actor, name string) (*entities.Publisher, error)
	GetPublisher(ctx context.Context, id uint) (*entities.Publisher, error)
	ListPublishers(ctx context.Context) ([]entities.Publisher, error)
	PublisherBooksCount(ctx context.Context) ([]publishers.BookCount, error)
	UpdatePublisher(ctx context.Context, actor library.Actor, id uint, name string) (*entities.Publisher, error)
	DeletePublisher(ctx context.Context, actor library.Actor, id uint) error
}

// CategoryService backs the /api/categories endpoints.
type CategoryService interface {
	CreateCategory(ctx context.Context, actor library.Actor, name string) (*entities.Category, error)
	ListCategories(ctx context.Context) ([]entities.Category, error)
	CategoryBooksCount(ctx context.Context) ([]categories.BookCount, error)
	UpdateCategory(ctx context.Context, actor library.Actor, id uint, name string) (*entities.Category, error)
	DeleteCategory(ctx context.Context, actor library.Actor, id uint) error
}

// BookService backs the /api/books endpoints.
type BookService interface {
	CreateBook(ctx context.Context, actor library.Actor, in library.CreateBookInput, upload *library.CoverUpload) (*entities.Book, error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	ListBooks(ctx context.Context, filter books.ListFilter) ([]entities.Book, int64, error)
	UpdateBook(ctx context.Context, actor library.Actor, id uint, in library.UpdateBookInput) (*entities.Book, error)
	DeleteBook(ctx context.Context, actor library.Actor, id uint) error
	SetBookCategories(ctx context.Context, actor library.Actor, id uint, refs []library.Ref) (*entities.Book, error)
	UploadCover(ctx context.Context, actor library.Actor, id uint, upload *library.CoverUpload) (*entities.Book, error)
}

// ReadingService backs the /api/readings endpoints.
type ReadingService interface {
	AddReading(ctx context.Context, actor library.Actor, bookID uint, statusKey string) (*entities.Reading, error)
	UpdateReading(ctx context.Context, actor library.Actor, id uint, in library.UpdateReadingInput) (*entities.Reading, error)
	RemoveReading(ctx context.Context, actor library.Actor, id uint) error
	ListMyReadings(ctx context.Context, actor library.Actor) ([]entities.Reading, error)
}

// AccountService backs the /api/users endpoints.
type AccountService interface {
	SignUp(ctx context.Context, in auth.SignUpInput) error
	VerifyEmail(ctx context.Context, token string) (*entities.User, error)
	Login(ctx context.Context, identity, password string) (*entities.User, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*entities.User, error)
	RequestPasswordReset(ctx context.Context, identity string) error
	ResetPassword(ctx context.Context, token, password string) error
	UpdateVisibility(ctx context.Context, userID uint, hideProfile, hideLibrary bool) (*entities.User, error)
	GetUser(ctx context.Context, id uint) (*entities.User, error)
	ListUsers(ctx context.Context, actor auth.Principal) ([]entities.User, error)
	UpdateAuthority(ctx context.Context, actor auth.Principal, targetID uint, authority entities.AuthorityID) (*entities.User, error)
	UserGrid(ctx context.Context) ([]auth.GridEntry, error)
}

// SessionStarter issues and drops login sessions.
type SessionStarter interface {
	CreateSession(ctx context.Context, user *entities.User) error
	DestroySession(ctx context.Context) error
}

// LogReader backs the admin audit log endpoint.
type LogReader interface {
	List(ctx context.Context, filter logs.Filter) ([]entities.Log, int64, error)
}

// StatusLister returns the fixed status lookup rows.
type StatusLister interface {
	Statuses() ([]entities.Status, error)
}

var (
	_ AuthorService    = (*library.Service)(nil)
	_ PublisherService = (*library.Service)(nil)
	_ CategoryService  = (*library.Service)(nil)
	_ BookService      = (*library.Service)(nil)
	_ ReadingService   = (*library.Service)(nil)
	_ AccountService   = (*auth.Service)(nil)
	_ SessionStarter   = (*auth.SessionManager)(nil)
)
