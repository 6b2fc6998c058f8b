package session

import (
	"errors"

	"flowvaHubAPI/internal/profile"
)

var ErrInvalidSession = errors.New("session invalid or expired")

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthResult is the uniform outcome of sign-up, sign-in, refresh and email
// verification. Auth failures (bad credentials, unconfirmed email) are
// Success=false values, never raised errors.
type AuthResult struct {
	Success              bool             `json:"success"`
	Message              string           `json:"message"`
	Profile              *profile.Profile `json:"profile,omitempty"`
	Tokens               *TokenPair       `json:"tokens,omitempty"`
	VerificationRequired bool             `json:"verification_required,omitempty"`
}
