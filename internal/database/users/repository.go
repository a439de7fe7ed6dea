// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByUsername(ctx, "ayse")
package users

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/kitaplik/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, user *entities.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByVerifiedEmail retrieves the user owning a verified email address.
func (r *Repository) GetByVerifiedEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND email_verified = ?", email, true).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByGoogleID(ctx context.Context, googleID string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIdentity matches the id and email carried by a password reset token.
func (r *Repository) GetByIdentity(ctx context.Context, id uint, email string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND email = ? AND email_verified = ?", id, email, true).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&entities.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func (r *Repository) VerifiedEmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("LOWER(email) = LOWER(?) AND email_verified = ?", email, true).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) Update(ctx context.Context, user *entities.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *Repository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func (r *Repository) UpdateVisibility(ctx context.Context, id uint, visibility, libraryVisibility bool) error {
	return r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).
		Updates(map[string]any{
			"visibility":         visibility,
			"library_visibility": libraryVisibility,
		}).Error
}

func (r *Repository) List(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

// ListVisible returns users who have not hidden their profile.
func (r *Repository) ListVisible(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	err := r.db.WithContext(ctx).Where("visibility = ?", false).Order("username ASC").Find(&users).Error
	return users, err
}

// HasUsers reports whether any account exists.
func (r *Repository) HasUsers(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
