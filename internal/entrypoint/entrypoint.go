package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kitaplik/internal/audit"
	"github.com/mrlokans/kitaplik/internal/auth"
	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/covers"
	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/database/books"
	"github.com/mrlokans/kitaplik/internal/database/logs"
	"github.com/mrlokans/kitaplik/internal/database/users"
	http_controllers "github.com/mrlokans/kitaplik/internal/http"
	"github.com/mrlokans/kitaplik/internal/library"
	"github.com/mrlokans/kitaplik/internal/mail"
	"github.com/mrlokans/kitaplik/internal/maintenance"
	"github.com/mrlokans/kitaplik/internal/scheduler"
	"github.com/mrlokans/kitaplik/internal/storage"
	"github.com/mrlokans/kitaplik/internal/storage/providers/local"
	"github.com/mrlokans/kitaplik/internal/storage/providers/oss"
	"github.com/mrlokans/kitaplik/internal/tasks"
	"github.com/mrlokans/kitaplik/internal/telemetry"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before background workers go away
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// newStorage picks the configured cover backend. The local client is also
// returned so its files can be served.
func newStorage(cfg config.Storage, secret string) (storage.Client, *local.Client, error) {
	switch cfg.Driver {
	case config.StorageOSS:
		client, err := oss.NewClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	case config.StorageLocal, "":
		client, err := local.NewClient(cfg.LocalDir, cfg.PublicURL, secret)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// sessionSecret decodes the configured secret, or generates one for this run.
func sessionSecret(configured string) []byte {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret
		}
		return []byte(configured)
	}
	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		log.Fatalf("Failed to generate session secret: %v", err)
	}
	secret, _ := hex.DecodeString(generated)
	log.Printf("Generated session secret (set SESSION_SECRET to persist)")
	return secret
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Kitaplik v%s", version)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	secret := sessionSecret(cfg.Auth.SessionSecret)

	store, localCovers, err := newStorage(cfg.Storage, hex.EncodeToString(secret))
	if err != nil {
		log.Fatalf("Failed to initialize cover storage: %v", err)
	}
	log.Printf("Cover storage: %s", cfg.Storage.Driver)

	// Background cover deletion
	var taskClient *tasks.Client
	var enqueuer *tasks.Enqueuer
	var sweeper *scheduler.CoverSweepScheduler
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		taskClient.Register(tasks.NewDeleteCoverQueue(store))
		go taskClient.Start(ctx)
		enqueuer = tasks.NewEnqueuer(taskClient)

		if cfg.Scheduler.CoverSweepEnabled {
			sweeper = scheduler.NewCoverSweepScheduler(books.NewRepository(db.DB), enqueuer, cfg.Scheduler)
			if err := sweeper.Start(ctx); err != nil {
				log.Printf("WARNING: cover sweep disabled: %v", err)
				sweeper = nil
			}
		}
	} else {
		log.Printf("Task queue disabled; replaced covers stay in storage")
	}

	auditService := audit.NewService(logs.NewRepository(db.DB))

	// Authentication
	sqlDB, err := db.SQLDB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, db.Driver, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}
	authMiddleware := auth.NewMiddleware(users.NewRepository(db.DB), sessionManager)

	var mailer mail.Sender = auth.NopMailer{}
	if cfg.Mail.APIKey != "" {
		mailer = mail.NewClient(cfg.Mail)
	} else {
		log.Printf("WARNING: RESEND_API_KEY is not set. Signup and password reset mails are disabled.")
	}

	var google auth.GoogleVerifier
	if cfg.Auth.GoogleClientID != "" {
		google = auth.NewGoogleVerifier(cfg.Auth.GoogleClientID)
	}

	loginLimiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	})

	authService := auth.NewService(db.DB, cfg.Auth, auth.Dependencies{
		Audit:   auditService,
		Mailer:  mailer,
		Google:  google,
		Limiter: loginLimiter,
	})
	if hasUsers, err := authService.HasUsers(ctx); err == nil && !hasUsers {
		log.Printf("No users found. Run '%s create-admin' to create an administrator account.", os.Args[0])
	}

	libraryDeps := library.Dependencies{
		Audit:    auditService,
		Store:    store,
		Covers:   covers.NewProcessor(cfg.Covers),
		CoverTTL: cfg.Covers.URLTTL,
	}
	if enqueuer != nil {
		libraryDeps.Deleter = enqueuer
	}
	libraryService := library.NewService(db.DB, libraryDeps)

	maintenanceMiddleware := maintenance.NewMiddleware(cfg.Maintenance.ReadOnly)
	if cfg.Maintenance.ReadOnly {
		log.Printf("Read-only mode enabled - write operations will be blocked")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Books:          libraryService,
		Authors:        libraryService,
		Publishers:     libraryService,
		Categories:     libraryService,
		Readings:       libraryService,
		Logs:           auditService,
		Accounts:       authService,
		SessionManager: sessionManager,
		AuthMiddleware: authMiddleware,
		MailLimiter:    auth.NewClientLimiter(cfg.Auth.MailRatePerMinute),
		SecureCookies:  cfg.Auth.SecureCookies,
		Maintenance:    maintenanceMiddleware,
		MaxUploadBytes: cfg.Covers.MaxUploadBytes,
		Version:        version,
	}
	if cfg.Auth.CSRFEnabled {
		routerCfg.CSRFSecret = secret
	}
	if localCovers != nil {
		routerCfg.CoverFiles = localCovers
		routerCfg.CoversPath = cfg.Storage.PublicURL
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		auditService.Wait()
		if sweeper != nil {
			sweeper.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}
		stop()
		loginLimiter.Stop()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Error flushing traces: %v", err)
		}
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	Serve(router, cfg, onShutdown)
}
