// Package auth provides accounts, sessions and access control.
//
// Accounts are created in two steps: SignUp mails a signed token carrying
// the username, email and bcrypt hash, and VerifyEmail turns that token into
// a member account. Login accepts a username or verified email; Google
// sign-in links or creates accounts from a verified ID token.
//
// Sessions are server-side (scs) and stored in the application database.
// The middleware re-reads the user on every request, so role changes and
// deletions apply to existing sessions immediately.
//
// # Usage
//
//	sm, _ := auth.NewSessionManager(db.SQLDB(), cfg.Database.Driver, cfg.Auth)
//	mw := auth.NewMiddleware(users.NewRepository(db.DB), sm)
//	router.Use(sm.SessionLoadSave(), mw.Handler())
//	router.POST("/api/books", mw.RequireNotGuest(), handler)
//
// Handlers read the caller with GetPrincipal(c); services read it from the
// request context with PrincipalFrom(ctx).
package auth
