package http

import (
	"github.com/mrlokans/kitaplik/internal/auth"
	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/maintenance"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Books    BookService
	Authors  AuthorService
	// Publishers, Categories and Readings are usually the same library.Service.
	Publishers PublisherService
	Categories CategoryService
	Readings   ReadingService
	Logs       LogReader

	// Authentication
	Accounts       AccountService
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	// MailLimiter throttles endpoints that send mail. Optional.
	MailLimiter *auth.ClientLimiter

	// CSRF protection is enabled when a secret is set
	CSRFSecret    []byte
	SecureCookies bool

	// Maintenance mode gate (optional)
	Maintenance *maintenance.Middleware

	// Local cover files, served under CoversPath. Nil with OSS storage.
	CoverFiles CoverFiles
	CoversPath string

	MaxUploadBytes int64

	// Application info
	Version string
}
