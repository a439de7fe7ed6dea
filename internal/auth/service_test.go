package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/audit"
	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/database/dbtest"
	"github.com/mrlokans/kitaplik/internal/database/logs"
	"github.com/mrlokans/kitaplik/internal/entities"
)

type sentMail struct {
	to   string
	link string
}

type fakeMailer struct {
	verifications []sentMail
	resets        []sentMail
	err           error
}

func (m *fakeMailer) SendVerification(_ context.Context, to, _ string, link string) error {
	if m.err != nil {
		return m.err
	}
	m.verifications = append(m.verifications, sentMail{to: to, link: link})
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, link string) error {
	if m.err != nil {
		return m.err
	}
	m.resets = append(m.resets, sentMail{to: to, link: link})
	return nil
}

type fakeGoogle struct {
	identity *GoogleIdentity
	err      error
}

func (g *fakeGoogle) Verify(string) (*GoogleIdentity, error) {
	return g.identity, g.err
}

type testEnv struct {
	svc    *Service
	db     *gorm.DB
	audit  *audit.Service
	mailer *fakeMailer
	google *fakeGoogle
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t).DB

	env := &testEnv{
		db:     db,
		audit:  audit.NewService(logs.NewRepository(db)),
		mailer: &fakeMailer{},
		google: &fakeGoogle{},
	}
	limiter := NewRateLimiter(RateLimitConfig{MaxAttempts: 3, WindowDuration: time.Minute, LockoutDuration: time.Minute})
	t.Cleanup(limiter.Stop)

	env.svc = NewService(db, config.Auth{
		BcryptCost:       bcrypt.MinCost,
		EmailTokenSecret: "email-secret",
		ResetTokenSecret: "reset-secret",
		WebsiteURL:       "https://kitaplik.example/",
	}, Dependencies{
		Audit:   env.audit,
		Mailer:  env.mailer,
		Google:  env.google,
		Limiter: limiter,
	})
	return env
}

func tokenFrom(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func (env *testEnv) signUpAndVerify(t *testing.T, username, email, password string) *entities.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.svc.SignUp(ctx, SignUpInput{Username: username, Email: email, Password: password}))
	link := env.mailer.verifications[len(env.mailer.verifications)-1].link
	user, err := env.svc.VerifyEmail(ctx, tokenFrom(t, link))
	require.NoError(t, err)
	return user
}

func (env *testEnv) countEvents(t *testing.T, event entities.EventTypeID) int64 {
	t.Helper()
	env.audit.Wait()
	var count int64
	require.NoError(t, env.db.Model(&entities.Log{}).Where("event_type_id = ?", event).Count(&count).Error)
	return count
}

func TestService_SignUpAndVerify(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	require.NoError(t, env.svc.SignUp(ctx, SignUpInput{Username: "ayse", Email: "ayse@example.com", Password: "secret123"}))
	require.Len(t, env.mailer.verifications, 1)
	mail := env.mailer.verifications[0]
	assert.Equal(t, "ayse@example.com", mail.to)
	assert.Contains(t, mail.link, "https://kitaplik.example/new-verification?token=")

	has, err := env.svc.HasUsers(ctx)
	require.NoError(t, err)
	assert.False(t, has, "no account before the email is confirmed")

	user, err := env.svc.VerifyEmail(ctx, tokenFrom(t, mail.link))
	require.NoError(t, err)
	assert.Equal(t, "ayse", user.Username)
	assert.Equal(t, entities.AuthorityMember, user.AuthorityID)
	assert.True(t, user.EmailVerified)
	assert.False(t, user.Visibility)
	assert.NoError(t, CheckPassword("secret123", user.PasswordHash))
	assert.Equal(t, int64(1), env.countEvents(t, entities.EventUserCreate))

	_, err = env.svc.VerifyEmail(ctx, tokenFrom(t, mail.link))
	assert.True(t, errors.Is(err, apperror.ErrConflict), "a token cannot create the account twice")
}

func TestService_SignUpConflicts(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	env.signUpAndVerify(t, "ayse", "ayse@example.com", "secret123")

	err := env.svc.SignUp(ctx, SignUpInput{Username: "ayse", Email: "other@example.com", Password: "secret123"})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Equal(t, msgUsernameTaken, apperror.MessageOf(err))

	err = env.svc.SignUp(ctx, SignUpInput{Username: "mehmet", Email: "AYSE@example.com", Password: "secret123"})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Equal(t, msgEmailTaken, apperror.MessageOf(err))
}

func TestService_SignUpValidation(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input SignUpInput
	}{
		{"missing username", SignUpInput{Email: "a@example.com", Password: "secret123"}},
		{"bad username", SignUpInput{Username: "a b", Email: "a@example.com", Password: "secret123"}},
		{"bad email", SignUpInput{Username: "ayse", Email: "not-an-email", Password: "secret123"}},
		{"short password", SignUpInput{Username: "ayse", Email: "a@example.com", Password: "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.svc.SignUp(ctx, tt.input)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
	assert.Empty(t, env.mailer.verifications)
}

func TestService_SignUpMailFailure(t *testing.T) {
	env := setupTestService(t)
	env.mailer.err = errors.New("smtp down")

	err := env.svc.SignUp(context.Background(), SignUpInput{Username: "ayse", Email: "ayse@example.com", Password: "secret123"})
	assert.Equal(t, apperror.KindUnavailable, apperror.KindOf(err))
	assert.Equal(t, "Verified mail could not be sent", apperror.MessageOf(err))
}

func TestService_VerifyEmailExpired(t *testing.T) {
	env := setupTestService(t)
	env.svc.signup.now = func() time.Time { return time.Now().Add(-10 * time.Minute) }

	require.NoError(t, env.svc.SignUp(context.Background(), SignUpInput{Username: "ayse", Email: "ayse@example.com", Password: "secret123"}))
	_, err := env.svc.VerifyEmail(context.Background(), tokenFrom(t, env.mailer.verifications[0].link))

	assert.Equal(t, apperror.KindTokenExpired, apperror.KindOf(err))
	assert.Equal(t, apperror.TokenExpiredMessage, apperror.MessageOf(err))
}

func TestService_Login(t *testing.T) {
	env := setupTestService(t)
	ctx := audit.WithRequestInfo(context.Background(), audit.RequestInfo{IP: "10.0.0.1"})
	created := env.signUpAndVerify(t, "ayse", "ayse@example.com", "secret123")

	t.Run("by username", func(t *testing.T) {
		user, err := env.svc.Login(ctx, "ayse", "secret123")
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)
	})

	t.Run("by verified email", func(t *testing.T) {
		user, err := env.svc.Login(ctx, "ayse@example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.svc.Login(ctx, "ayse", "wrong-password")
		assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
		assert.Equal(t, msgInvalidCredentials, apperror.MessageOf(err))
		assert.Equal(t, int64(1), env.countEvents(t, entities.EventLoginError))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.svc.Login(ctx, "nobody", "secret123")
		assert.Equal(t, msgInvalidCredentials, apperror.MessageOf(err))
	})
}

func TestService_LoginLockout(t *testing.T) {
	env := setupTestService(t)
	ctx := audit.WithRequestInfo(context.Background(), audit.RequestInfo{IP: "10.0.0.9"})
	env.signUpAndVerify(t, "ayse", "ayse@example.com", "secret123")

	for i := 0; i < 3; i++ {
		_, err := env.svc.Login(ctx, "ayse", "wrong")
		require.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
	}

	_, err := env.svc.Login(ctx, "ayse", "secret123")
	assert.Equal(t, apperror.KindRateLimited, apperror.KindOf(err))
	env.audit.Wait()
}

func TestService_LoginWithGoogle(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	t.Run("creates a new account", func(t *testing.T) {
		env.google.identity = &GoogleIdentity{Subject: "g-1", Email: "zeynep@example.com", Name: "Zeynep"}
		user, err := env.svc.LoginWithGoogle(ctx, "id-token")
		require.NoError(t, err)
		assert.Equal(t, "zeynep", user.Username)
		require.NotNil(t, user.GoogleID)
		assert.Equal(t, "g-1", *user.GoogleID)
		assert.True(t, user.EmailVerified)

		again, err := env.svc.LoginWithGoogle(ctx, "id-token")
		require.NoError(t, err)
		assert.Equal(t, user.ID, again.ID)
	})

	t.Run("makes the username unique", func(t *testing.T) {
		env.google.identity = &GoogleIdentity{Subject: "g-2", Email: "zeynep2@example.com", Name: "Zeynep"}
		user, err := env.svc.LoginWithGoogle(ctx, "id-token")
		require.NoError(t, err)
		assert.Regexp(t, `^zey[0-9a-f]{10}$`, user.Username)
	})

	t.Run("links a verified email", func(t *testing.T) {
		existing := env.signUpAndVerify(t, "ayse", "ayse@example.com", "secret123")
		env.google.identity = &GoogleIdentity{Subject: "g-3", Email: "ayse@example.com", Name: "Ayşe"}
		user, err := env.svc.LoginWithGoogle(ctx, "id-token")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)
		require.NotNil(t, user.GoogleID)
		assert.Equal(t, "g-3", *user.GoogleID)
	})

	t.Run("rejects an invalid token", func(t *testing.T) {
		env.google.err = errors.New("bad signature")
		_, err := env.svc.LoginWithGoogle(ctx, "id-token")
		assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
		env.google.err = nil
	})
}

func TestService_PasswordReset(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	env.signUpAndVerify(t, "ayse", "ayse@example.com", "secret123")

	err := env.svc.RequestPasswordReset(ctx, "nobody@example.com")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, msgMailNotExist, apperror.MessageOf(err))

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "ayse"))
	require.Len(t, env.mailer.resets, 1)
	assert.Equal(t, "ayse@example.com", env.mailer.resets[0].to)
	assert.Contains(t, env.mailer.resets[0].link, "/new-password?token=")

	token := tokenFrom(t, env.mailer.resets[0].link)
	require.NoError(t, env.svc.ResetPassword(ctx, token, "new-secret"))

	_, err = env.svc.Login(ctx, "ayse", "secret123")
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
	_, err = env.svc.Login(ctx, "ayse", "new-secret")
	assert.NoError(t, err)

	err = env.svc.ResetPassword(ctx, "garbage", "new-secret")
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
	env.audit.Wait()
}

func TestService_ResetPasswordUnknownUser(t *testing.T) {
	env := setupTestService(t)
	token, err := env.svc.reset.SignReset(ResetClaims{UserID: 99, Email: "ghost@example.com"})
	require.NoError(t, err)

	err = env.svc.ResetPassword(context.Background(), token, "new-secret")
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
	assert.Equal(t, msgResetUserNotFound, apperror.MessageOf(err))
}

func TestVisibilityFlags(t *testing.T) {
	tests := []struct {
		hideProfile, hideLibrary bool
		wantProfile, wantLibrary bool
	}{
		{true, false, true, true},
		{true, true, true, true},
		{false, true, false, true},
		{false, false, false, false},
	}
	for _, tt := range tests {
		profile, library := visibilityFlags(tt.hideProfile, tt.hideLibrary)
		assert.Equal(t, tt.wantProfile, profile)
		assert.Equal(t, tt.wantLibrary, library)
	}
}

func TestService_UpdateVisibility(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	user := env.signUpAndVerify(t, "ayse", "ayse@example.com", "secret123")

	updated, err := env.svc.UpdateVisibility(ctx, user.ID, true, false)
	require.NoError(t, err)
	assert.True(t, updated.Visibility)
	assert.True(t, updated.LibraryVisibility)

	stored, err := env.svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Visibility)
	assert.Equal(t, int64(1), env.countEvents(t, entities.EventUserUpdate))
}

func TestService_UpdateAuthority(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	admin, err := env.svc.CreateAdmin(ctx, "yonetici", "admin@example.com", "secret123")
	require.NoError(t, err)
	member := env.signUpAndVerify(t, "ayse", "ayse@example.com", "secret123")

	adminActor := Principal{UserID: admin.ID, Authority: entities.AuthorityAdmin}
	memberActor := Principal{UserID: member.ID, Authority: entities.AuthorityMember}

	_, err = env.svc.UpdateAuthority(ctx, memberActor, member.ID, entities.AuthorityAdmin)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = env.svc.UpdateAuthority(ctx, adminActor, member.ID, entities.AuthorityID(9))
	assert.Equal(t, msgAuthorityNotFound, apperror.MessageOf(err))

	_, err = env.svc.UpdateAuthority(ctx, adminActor, 999, entities.AuthorityGuest)
	assert.Equal(t, msgUserNotFound, apperror.MessageOf(err))

	updated, err := env.svc.UpdateAuthority(ctx, adminActor, member.ID, entities.AuthorityGuest)
	require.NoError(t, err)
	assert.Equal(t, entities.AuthorityGuest, updated.AuthorityID)
	assert.True(t, updated.Visibility)
	assert.True(t, updated.LibraryVisibility)

	var entry entities.Log
	require.NoError(t, env.db.Where("event_type_id = ?", entities.EventUserUpdate).First(&entry).Error)
	assert.Contains(t, entry.Description, "user update")

	list, err := env.svc.ListUsers(ctx, adminActor)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = env.svc.ListUsers(ctx, Principal{})
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}

func TestService_UserGrid(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	ayse := env.signUpAndVerify(t, "ayse", "ayse@example.com", "secret123")
	hidden := env.signUpAndVerify(t, "gizli", "gizli@example.com", "secret123")
	_, err := env.svc.UpdateVisibility(ctx, hidden.ID, true, true)
	require.NoError(t, err)

	surname := "Ali"
	author := entities.Author{Name: "Sabahattin", Surname: &surname}
	require.NoError(t, env.db.Create(&author).Error)
	books := []entities.Book{
		{Title: "Kürk Mantolu Madonna", AuthorID: author.ID, StatusID: entities.StatusFinished},
		{Title: "İçimizdeki Şeytan", AuthorID: author.ID, StatusID: entities.StatusAbandoned},
	}
	require.NoError(t, env.db.Create(&books).Error)
	readings := []entities.Reading{
		{UserID: ayse.ID, BookID: books[0].ID, StatusID: entities.StatusFinished},
		{UserID: ayse.ID, BookID: books[1].ID, StatusID: entities.StatusAbandoned},
	}
	require.NoError(t, env.db.Omit("Book", "Status").Create(&readings).Error)

	grid, err := env.svc.UserGrid(ctx)
	require.NoError(t, err)
	require.Len(t, grid, 1)
	entry := grid[0]
	assert.Equal(t, "ayse", entry.Username)
	assert.Equal(t, int64(2), entry.Interacted)
	assert.Equal(t, int64(1), entry.Completed)
	assert.Equal(t, int64(1), entry.Abandoned)
	require.NotNil(t, entry.FavoriteAuthor)
	assert.Equal(t, "Sabahattin Ali", *entry.FavoriteAuthor)
}

func TestService_CreateAdmin(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	admin, err := env.svc.CreateAdmin(ctx, "yonetici", "", "secret123")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.EmailVerified)

	_, err = env.svc.CreateAdmin(ctx, "yonetici", "", "secret123")
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestNopMailer(t *testing.T) {
	err := NopMailer{}.SendVerification(context.Background(), "a@example.com", "a", "link")
	assert.ErrorIs(t, err, ErrMailDisabled)
}
