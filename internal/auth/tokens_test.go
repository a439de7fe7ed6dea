package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kitaplik/internal/apperror"
)

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := NewTokenSigner("email-secret", 0)

	token, err := signer.SignSignup(SignupClaims{Username: "ayse", Email: "ayse@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	claims, err := signer.ParseSignup(token)
	require.NoError(t, err)
	assert.Equal(t, "ayse", claims.Username)
	assert.Equal(t, "ayse@example.com", claims.Email)
	assert.Equal(t, "hash", claims.PasswordHash)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenSigner_Expired(t *testing.T) {
	signer := NewTokenSigner("reset-secret", time.Minute)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	token, err := signer.SignReset(ResetClaims{UserID: 3, Email: "ayse@example.com"})
	require.NoError(t, err)

	_, err = signer.ParseReset(token)
	assert.Equal(t, apperror.KindTokenExpired, apperror.KindOf(err))
	assert.Equal(t, apperror.TokenExpiredMessage, apperror.MessageOf(err))
}

func TestTokenSigner_WrongSecret(t *testing.T) {
	token, err := NewTokenSigner("one", 0).SignReset(ResetClaims{UserID: 1})
	require.NoError(t, err)

	_, err = NewTokenSigner("two", 0).ParseReset(token)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))

	_, err = NewTokenSigner("one", 0).ParseReset("not-a-token")
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))

	_, err = NewTokenSigner("one", 0).ParseReset("")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestTokenSigner_RequiresSecret(t *testing.T) {
	_, err := NewTokenSigner("", 0).SignReset(ResetClaims{UserID: 1})
	assert.Error(t, err)
}
