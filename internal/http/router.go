package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kitaplik/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestContextMiddleware())
	router.Use(TracingMiddleware())
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF replaces the request, so it runs before the session is loaded
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	router.Use(cfg.SessionManager.SessionLoadSave())
	router.Use(cfg.AuthMiddleware.Handler())

	readOnly := cfg.Maintenance != nil && cfg.Maintenance.ReadOnly()
	if cfg.Maintenance != nil {
		router.Use(cfg.Maintenance.Handler())
	}

	mw := cfg.AuthMiddleware
	member := mw.RequireNotGuest()
	admin := mw.RequireAdmin()
	authenticated := mw.RequireAuth()

	mailLimit := func(c *gin.Context) { c.Next() }
	if cfg.MailLimiter != nil {
		mailLimit = cfg.MailLimiter.Middleware()
	}

	health := NewHealthController(cfg.Database, cfg.Version, readOnly)
	statuses := NewStatusesController(cfg.Database)
	authors := NewAuthorsController(cfg.Authors)
	publishers := NewPublishersController(cfg.Publishers)
	categories := NewCategoriesController(cfg.Categories)
	books := NewBooksController(cfg.Books, cfg.MaxUploadBytes)
	readings := NewReadingsController(cfg.Readings)
	users := NewUsersController(cfg.Accounts, cfg.SessionManager)
	auditLogs := NewLogsController(cfg.Logs)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if cfg.CoverFiles != nil {
		path := cfg.CoversPath
		if path == "" {
			path = "/covers"
		}
		router.GET(path+"/*key", NewCoversController(cfg.CoverFiles).Serve)
	}

	api := router.Group("/api")
	api.GET("/csrf", auth.CSRFTokenHandler)
	api.GET("/statuses", statuses.List)

	// Authors
	api.GET("/authors", authors.List)
	api.GET("/authors/select", authors.Select)
	api.GET("/authors/books-count", authors.BooksCount)
	api.GET("/authors/:id", authors.Get)
	api.POST("/authors", member, authors.Create)
	api.PATCH("/authors/:id", member, authors.Update)
	api.DELETE("/authors/:id", member, authors.Delete)

	// Publishers
	api.GET("/publishers", publishers.List)
	api.GET("/publishers/books-count", publishers.BooksCount)
	api.GET("/publishers/:id", publishers.Get)
	api.POST("/publishers", member, publishers.Create)
	api.PATCH("/publishers/:id", member, publishers.Update)
	api.DELETE("/publishers/:id", member, publishers.Delete)

	// Categories
	api.GET("/categories", categories.List)
	api.GET("/categories/books-count", categories.BooksCount)
	api.POST("/categories", member, categories.Create)
	api.PATCH("/categories/:id", member, categories.Update)
	api.DELETE("/categories/:id", member, categories.Delete)

	// Books
	api.GET("/books", books.List)
	api.GET("/books/:id", books.Get)
	api.POST("/books", member, books.Create)
	api.PATCH("/books/:id", member, books.Update)
	api.DELETE("/books/:id", member, books.Delete)
	api.PUT("/books/:id/categories", member, books.SetCategories)
	api.PUT("/books/:id/cover", member, books.UploadCover)

	// Readings
	api.GET("/readings", authenticated, readings.List)
	api.POST("/readings", authenticated, readings.Create)
	api.PATCH("/readings/:id", authenticated, readings.Update)
	api.DELETE("/readings/:id", authenticated, readings.Delete)

	// Users
	api.GET("/users/grid", users.Grid)
	api.POST("/users/signup", mailLimit, users.SignUp)
	api.POST("/users/verify", users.Verify)
	api.POST("/users/login", users.Login)
	api.POST("/users/login/google", users.GoogleLogin)
	api.POST("/users/logout", users.Logout)
	api.POST("/users/reset-password", mailLimit, users.RequestReset)
	api.POST("/users/new-password", users.NewPassword)
	api.GET("/users/me", authenticated, users.Me)
	api.PATCH("/users/me/visibility", authenticated, users.UpdateVisibility)
	api.GET("/users", admin, users.List)
	api.PATCH("/users/:id/authority", admin, users.UpdateAuthority)

	// Audit trail
	api.GET("/logs", admin, auditLogs.List)

	return router
}
