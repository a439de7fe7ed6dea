package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/audit"
	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/database/readings"
	"github.com/mrlokans/kitaplik/internal/database/users"
	"github.com/mrlokans/kitaplik/internal/entities"
	"github.com/mrlokans/kitaplik/internal/mail"
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.\-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
)

// Client-facing messages.
const (
	msgMissingParameters  = "Missing parameters"
	msgUsernameTaken      = "Username already taken. Please choose a different one or log in instead."
	msgEmailTaken         = "A user with this email adress already exists. Please log in instead."
	msgInvalidCredentials = "Invalid credentials"
	msgMailNotExist       = "Mail does not exist"
	msgResetUserNotFound  = "User not found!"
	msgUserNotFound       = "User not found"
	msgAuthorityNotFound  = "Authority not found"
	msgTooManyAttempts    = "Too many login attempts, please try again later"
)

// SignUpInput is a pending registration.
type SignUpInput struct {
	Username string
	Email    string
	Password string
}

// GridEntry is one visible user on the public users grid.
type GridEntry struct {
	UserID            uint    `json:"user_id"`
	Username          string  `json:"user_name"`
	LibraryVisibility bool    `json:"library_visibility"`
	FavoriteAuthor    *string `json:"favorite_author"`
	readings.Stats
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Audit   *audit.Service
	Mailer  mail.Sender
	Google  GoogleVerifier
	Limiter *RateLimiter
}

// Service implements the account flows: signup with email confirmation,
// password and Google login, password reset and user administration.
type Service struct {
	db       *gorm.DB
	users    *users.Repository
	readings *readings.Repository
	deps     Dependencies
	config   config.Auth
	signup   *TokenSigner
	reset    *TokenSigner
}

func NewService(db *gorm.DB, cfg config.Auth, deps Dependencies) *Service {
	return &Service{
		db:       db,
		users:    users.NewRepository(db),
		readings: readings.NewRepository(db),
		deps:     deps,
		config:   cfg,
		signup:   NewTokenSigner(cfg.EmailTokenSecret, cfg.EmailTokenExpiry),
		reset:    NewTokenSigner(cfg.ResetTokenSecret, cfg.EmailTokenExpiry),
	}
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	if s.deps.Audit == nil {
		return nil
	}
	return s.deps.Audit.Record(ctx, tx, entry)
}

func (s *Service) recordAsync(ctx context.Context, entry audit.Entry) {
	if s.deps.Audit == nil {
		return
	}
	s.deps.Audit.RecordAsync(ctx, entry)
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.config.WebsiteURL, "/") + path + "?token=" + token
}

// SignUp validates the registration and mails a confirmation link. No
// account exists until VerifyEmail succeeds.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return apperror.Validation(msgMissingParameters)
	}
	if !usernamePattern.MatchString(in.Username) {
		return apperror.Validation("Username must be 3-64 letters, digits, '.', '_' or '-'")
	}
	if len(in.Email) > 254 || !emailPattern.MatchString(in.Email) {
		return apperror.Validation("Invalid email format")
	}

	if err := s.checkAvailable(ctx, s.users, in.Username, in.Email); err != nil {
		return err
	}

	hash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return err
	}

	token, err := s.signup.SignSignup(SignupClaims{Username: in.Username, Email: in.Email, PasswordHash: hash})
	if err != nil {
		return apperror.Internal("failed to sign verification token", err)
	}

	if err := s.deps.Mailer.SendVerification(ctx, in.Email, in.Username, s.link("/new-verification", token)); err != nil {
		log.Printf("[AUTH] Verification mail to %s failed: %v", in.Email, err)
		return apperror.Unavailable("Verified mail could not be sent", err)
	}
	return nil
}

func (s *Service) checkAvailable(ctx context.Context, repo *users.Repository, username, email string) error {
	taken, err := repo.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return apperror.Conflict(msgUsernameTaken)
	}

	taken, err = repo.VerifiedEmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return apperror.Conflict(msgEmailTaken)
	}
	return nil
}

// VerifyEmail creates the member account carried by a signup token.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*entities.User, error) {
	claims, err := s.signup.ParseSignup(token)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:      claims.Username,
		Email:         claims.Email,
		PasswordHash:  claims.PasswordHash,
		AuthorityID:   entities.AuthorityMember,
		EmailVerified: true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		if err := s.checkAvailable(ctx, repo, user.Username, user.Email); err != nil {
			return err
		}
		if err := repo.Create(ctx, user); err != nil {
			if database.IsUniqueViolation(err) {
				return apperror.Conflict(msgUsernameTaken)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.record(ctx, tx, audit.Entry{
			UserID:      user.ID,
			Event:       entities.EventUserCreate,
			Description: fmt.Sprintf("user %s verified email", user.Username),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[AUTH] Created user %s (id=%d)", user.Username, user.ID)
	return user, nil
}

// Login accepts a username or a verified email address as identity.
func (s *Service) Login(ctx context.Context, identity, password string) (*entities.User, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return nil, apperror.Validation(msgMissingParameters)
	}

	info, _ := audit.RequestInfoFrom(ctx)
	ip := info.IP
	if s.deps.Limiter != nil {
		if allowed, _ := s.deps.Limiter.Allow(ip, identity); !allowed {
			return nil, apperror.RateLimited(msgTooManyAttempts)
		}
	}

	var (
		user *entities.User
		err  error
	)
	if emailPattern.MatchString(identity) {
		user, err = s.users.GetByVerifiedEmail(ctx, identity)
	} else {
		user, err = s.users.GetByUsername(ctx, identity)
	}
	if err != nil && !database.IsNotFound(err) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil || CheckPassword(password, user.PasswordHash) != nil {
		s.loginFailed(ctx, ip, identity, user)
		return nil, apperror.Unauthenticated(msgInvalidCredentials)
	}

	if s.deps.Limiter != nil {
		s.deps.Limiter.RecordSuccess(ip, identity)
	}
	return user, nil
}

func (s *Service) loginFailed(ctx context.Context, ip, identity string, user *entities.User) {
	entry := audit.Entry{
		Event:       entities.EventLoginError,
		Description: fmt.Sprintf("failed login for %s", identity),
	}
	if user != nil {
		entry.UserID = user.ID
	}
	s.recordAsync(ctx, entry)

	if s.deps.Limiter != nil {
		if locked, retryAfter := s.deps.Limiter.RecordFailure(ip, identity); locked {
			log.Printf("[AUTH] Locked out %s from %s for %v", identity, ip, retryAfter)
		}
	}
}

// LoginWithGoogle signs in the owner of a Google ID token. Unknown accounts
// are linked by verified email, or created.
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*entities.User, error) {
	if idToken == "" {
		return nil, apperror.Validation(msgMissingParameters)
	}
	if s.deps.Google == nil {
		return nil, apperror.Unavailable("Google login is not configured", nil)
	}

	identity, err := s.deps.Google.Verify(idToken)
	if err != nil {
		log.Printf("[AUTH] Google token rejected: %v", err)
		return nil, apperror.Unauthenticated("Invalid Google ID token")
	}

	user, err := s.users.GetByGoogleID(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !database.IsNotFound(err) {
		return nil, fmt.Errorf("failed to find google user: %w", err)
	}

	if identity.Email != "" {
		user, err = s.users.GetByVerifiedEmail(ctx, identity.Email)
		if err == nil {
			user.GoogleID = &identity.Subject
			if err := s.users.Update(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to link google account: %w", err)
			}
			return user, nil
		}
		if !database.IsNotFound(err) {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
	}

	return s.createGoogleUser(ctx, identity)
}

func (s *Service) createGoogleUser(ctx context.Context, identity *GoogleIdentity) (*entities.User, error) {
	base := usernameBase(identity)
	user := &entities.User{
		Email:         identity.Email,
		AuthorityID:   entities.AuthorityMember,
		EmailVerified: true,
		GoogleID:      &identity.Subject,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		username, err := uniqueUsername(ctx, repo, base)
		if err != nil {
			return err
		}
		user.Username = username

		if err := repo.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create google user: %w", err)
		}
		return s.record(ctx, tx, audit.Entry{
			UserID:      user.ID,
			Event:       entities.EventUserCreate,
			Description: fmt.Sprintf("user %s signed up with google", user.Username),
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// usernameBase derives a username candidate from the Google profile.
func usernameBase(identity *GoogleIdentity) string {
	source := identity.Name
	if source == "" {
		source, _, _ = strings.Cut(identity.Email, "@")
	}
	var b strings.Builder
	for _, r := range source {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	if b.Len() < 3 {
		return "okur"
	}
	return b.String()
}

// uniqueUsername returns base when free, else the first three characters of
// base followed by ten random hex characters.
func uniqueUsername(ctx context.Context, repo *users.Repository, base string) (string, error) {
	candidate := base
	prefix := []rune(base)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	for attempt := 0; attempt < 10; attempt++ {
		taken, err := repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		suffix, err := randomHex(5)
		if err != nil {
			return "", err
		}
		candidate = string(prefix) + suffix
	}
	return "", apperror.Conflict(msgUsernameTaken)
}

// RequestPasswordReset mails a reset link to the account matching a
// verified email or a username.
func (s *Service) RequestPasswordReset(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return apperror.Validation(msgMissingParameters)
	}

	user, err := s.users.GetByVerifiedEmail(ctx, identity)
	if database.IsNotFound(err) {
		user, err = s.users.GetByUsername(ctx, identity)
	}
	if err != nil {
		if database.IsNotFound(err) {
			return apperror.NotFound(msgMailNotExist)
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	if !user.EmailVerified || user.Email == "" {
		return apperror.NotFound(msgMailNotExist)
	}

	token, err := s.reset.SignReset(ResetClaims{UserID: user.ID, Email: user.Email})
	if err != nil {
		return apperror.Internal("failed to sign reset token", err)
	}

	if err := s.deps.Mailer.SendPasswordReset(ctx, user.Email, s.link("/new-password", token)); err != nil {
		log.Printf("[AUTH] Reset mail to user %d failed: %v", user.ID, err)
		return apperror.Unavailable("Reset mail could not be sent", err)
	}
	return nil
}

// ResetPassword replaces the password of the account named by a reset token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return apperror.Validation(msgMissingParameters)
	}
	claims, err := s.reset.ParseReset(token)
	if err != nil {
		return err
	}

	user, err := s.users.GetByIdentity(ctx, claims.UserID, claims.Email)
	if err != nil {
		if database.IsNotFound(err) {
			return apperror.Unauthenticated(msgResetUserNotFound)
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).UpdatePassword(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return s.record(ctx, tx, audit.Entry{
			UserID:      user.ID,
			Event:       entities.EventUserUpdate,
			Description: "user reset password",
		})
	})
}

// UpdateVisibility applies the profile privacy choice. Hiding the profile
// hides the library too; otherwise only the library flag is taken.
func (s *Service) UpdateVisibility(ctx context.Context, userID uint, hideProfile, hideLibrary bool) (*entities.User, error) {
	if userID == 0 {
		return nil, apperror.Unauthenticated(msgNotAuthenticated)
	}

	var user *entities.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		var err error
		user, err = repo.GetByID(ctx, userID)
		if err != nil {
			if database.IsNotFound(err) {
				return apperror.NotFound(msgUserNotFound)
			}
			return fmt.Errorf("failed to find user: %w", err)
		}

		user.Visibility, user.LibraryVisibility = visibilityFlags(hideProfile, hideLibrary)
		if err := repo.UpdateVisibility(ctx, user.ID, user.Visibility, user.LibraryVisibility); err != nil {
			return fmt.Errorf("failed to update visibility: %w", err)
		}
		return s.record(ctx, tx, audit.Entry{
			UserID:      user.ID,
			Event:       entities.EventUserUpdate,
			Description: "user change his visibility",
			Details: map[string]any{
				"user_visibility":    user.Visibility,
				"library_visibility": user.LibraryVisibility,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func visibilityFlags(hideProfile, hideLibrary bool) (profile, library bool) {
	switch {
	case hideProfile:
		return true, true
	case hideLibrary:
		return false, true
	default:
		return false, false
	}
}

func (s *Service) GetUser(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func requireAdmin(actor Principal) error {
	if actor.UserID == 0 {
		return apperror.Unauthenticated(msgNotAuthenticated)
	}
	if actor.Authority != entities.AuthorityAdmin {
		return apperror.Forbidden("Admin authority required")
	}
	return nil
}

// ListUsers returns every account. Admin only.
func (s *Service) ListUsers(ctx context.Context, actor Principal) ([]entities.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return list, nil
}

// UpdateAuthority changes a user's role. Demoting to guest hides the profile
// and the library. Sessions pick up the change on their next request.
func (s *Service) UpdateAuthority(ctx context.Context, actor Principal, targetID uint, authority entities.AuthorityID) (*entities.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if targetID == 0 || authority == 0 {
		return nil, apperror.Validation(msgMissingParameters)
	}
	if !authority.Valid() {
		return nil, apperror.NotFound(msgAuthorityNotFound)
	}

	var user *entities.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		var err error
		user, err = repo.GetByID(ctx, targetID)
		if err != nil {
			if database.IsNotFound(err) {
				return apperror.NotFound(msgUserNotFound)
			}
			return fmt.Errorf("failed to find user: %w", err)
		}

		previous := user.AuthorityID
		user.AuthorityID = authority
		if authority == entities.AuthorityGuest {
			user.Visibility = true
			user.LibraryVisibility = true
		}
		if err := repo.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update authority: %w", err)
		}
		return s.record(ctx, tx, audit.Entry{
			UserID:      actor.UserID,
			Event:       entities.EventUserUpdate,
			Description: fmt.Sprintf("%d numbered user update %d user authority", actor.UserID, user.ID),
			Details: map[string]any{
				"target_user_id": user.ID,
				"from":           previous.Name(),
				"to":             authority.Name(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserGrid lists visible users with their reading counts and favourite author.
func (s *Service) UserGrid(ctx context.Context) ([]GridEntry, error) {
	visible, err := s.users.ListVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	grid := make([]GridEntry, 0, len(visible))
	for _, u := range visible {
		stats, err := s.readings.StatsForUser(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load reading stats: %w", err)
		}
		entry := GridEntry{
			UserID:            u.ID,
			Username:          u.Username,
			LibraryVisibility: u.LibraryVisibility,
			Stats:             stats,
		}

		fav, err := s.readings.FavoriteAuthor(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load favourite author: %w", err)
		}
		if fav != nil {
			name := fav.Name
			if fav.Surname != nil && *fav.Surname != "" {
				name += " " + *fav.Surname
			}
			entry.FavoriteAuthor = &name
		}
		grid = append(grid, entry)
	}
	return grid, nil
}

// CreateAdmin creates a verified admin account, for bootstrapping from the CLI.
func (s *Service) CreateAdmin(ctx context.Context, username, email, password string) (*entities.User, error) {
	if username == "" || password == "" {
		return nil, apperror.Validation(msgMissingParameters)
	}
	if !usernamePattern.MatchString(username) {
		return nil, apperror.Validation("Username must be 3-64 letters, digits, '.', '_' or '-'")
	}
	if email != "" && !emailPattern.MatchString(email) {
		return nil, apperror.Validation("Invalid email format")
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		AuthorityID:   entities.AuthorityAdmin,
		EmailVerified: email != "",
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		if err := s.checkAvailable(ctx, repo, username, email); err != nil {
			return err
		}
		if err := repo.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		return s.record(ctx, tx, audit.Entry{
			UserID:      user.ID,
			Event:       entities.EventUserCreate,
			Description: fmt.Sprintf("admin %s created from command line", username),
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// HasUsers reports whether any account exists.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	return s.users.HasUsers(ctx)
}

// ErrMailDisabled is returned by NopMailer.
var ErrMailDisabled = errors.New("mail delivery is not configured")

// NopMailer refuses every message. It stands in when no mail API key is set.
type NopMailer struct{}

func (NopMailer) SendVerification(context.Context, string, string, string) error {
	return ErrMailDisabled
}

func (NopMailer) SendPasswordReset(context.Context, string, string) error {
	return ErrMailDisabled
}
