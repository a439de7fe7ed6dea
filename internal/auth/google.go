package auth

import (
	"fmt"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

// GoogleIdentity is the verified subset of a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier checks a Google ID token and returns who it belongs to.
type GoogleVerifier interface {
	Verify(idToken string) (*GoogleIdentity, error)
}

type googleTokenVerifier struct {
	clientID string
	verifier googleAuthIDTokenVerifier.Verifier
}

// NewGoogleVerifier validates tokens against Google's certificates for clientID.
func NewGoogleVerifier(clientID string) GoogleVerifier {
	return &googleTokenVerifier{clientID: clientID}
}

func (v *googleTokenVerifier) Verify(idToken string) (*GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, fmt.Errorf("google client id not configured")
	}
	if err := v.verifier.VerifyIDToken(idToken, []string{v.clientID}); err != nil {
		return nil, fmt.Errorf("failed to verify google id token: %w", err)
	}

	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decode google id token: %w", err)
	}
	return &GoogleIdentity{
		Subject: claims.Sub,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}
