package auth

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID      = "user_id"
	SessionKeyAuthorityID = "authority_id"
	SessionKeyLoginAt     = "login_at"
)

const (
	sqliteSessionsSchema = `CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

	postgresSessionsSchema = `CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BYTEA NOT NULL,
		expiry TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions (expiry);`
)

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager backed by the application database.
// sqlDB is the pool underneath GORM; driver picks the matching scs store.
func NewSessionManager(sqlDB *sql.DB, driver config.DatabaseDriver, cfg config.Auth) (*SessionManager, error) {
	sm := scs.New()

	switch driver {
	case config.DriverPostgres:
		if _, err := sqlDB.Exec(postgresSessionsSchema); err != nil {
			return nil, fmt.Errorf("failed to create sessions table: %w", err)
		}
		sm.Store = postgresstore.New(sqlDB)
	case config.DriverSQLite, "":
		if _, err := sqlDB.Exec(sqliteSessionsSchema); err != nil {
			return nil, fmt.Errorf("failed to create sessions table: %w", err)
		}
		sm.Store = sqlite3store.New(sqlDB)
	default:
		return nil, fmt.Errorf("unsupported session store driver %q", driver)
	}

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession stores the user in a fresh session token after a successful login.
func (sm *SessionManager) CreateSession(ctx context.Context, user *entities.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("failed to renew session token: %w", err)
	}

	sm.Put(ctx, SessionKeyUserID, int(user.ID))
	sm.Put(ctx, SessionKeyAuthorityID, int(user.AuthorityID))
	sm.Put(ctx, SessionKeyLoginAt, time.Now().Unix())
	return nil
}

func (sm *SessionManager) DestroySession(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// GetUserID returns 0 when the session carries no user.
func (sm *SessionManager) GetUserID(ctx context.Context) uint {
	return uint(sm.GetInt(ctx, SessionKeyUserID))
}

func (sm *SessionManager) GetAuthorityID(ctx context.Context) entities.AuthorityID {
	return entities.AuthorityID(sm.GetInt(ctx, SessionKeyAuthorityID))
}

// SetAuthorityID refreshes the cached role after it changed in the database.
func (sm *SessionManager) SetAuthorityID(ctx context.Context, authority entities.AuthorityID) {
	sm.Put(ctx, SessionKeyAuthorityID, int(authority))
}
