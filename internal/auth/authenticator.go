package auth

import (
	"context"
	"errors"

	"github.com/artzymeri/miteinander/internal/models"
	"github.com/artzymeri/miteinander/internal/store"
)

// Connection rejection reasons. The strings are part of the wire contract:
// clients display them verbatim.
var (
	ErrMissingCredential = errors.New("Authentication required")
	ErrInvalidToken      = errors.New("Invalid token")
	ErrInvalidRole       = errors.New("Invalid role")
	ErrUserInactive      = errors.New("User not found or inactive")
)

// Identity is a verified, role-tagged identity attached to a connection for
// its whole lifetime.
type Identity struct {
	UserID int64
	Role   models.Role
}

// Key returns the canonical "{role}:{id}" key used for presence entries and
// personal rooms.
func (i Identity) Key() string {
	return models.UserKey(i.Role, i.UserID)
}

// Authenticator resolves a bearer credential to a verified Identity at
// connection time. Runs once per connection, before any event handling.
type Authenticator struct {
	verifier *TokenVerifier
	store    store.DataStore
}

// NewAuthenticator creates an authenticator backed by the given store.
func NewAuthenticator(verifier *TokenVerifier, st store.DataStore) *Authenticator {
	return &Authenticator{verifier: verifier, store: st}
}

// Authenticate validates the credential and resolves it to an active
// identity. Every failure maps to one of the fixed rejection reasons above;
// store errors are folded into ErrUserInactive so internals never leak.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingCredential
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	role, ok := models.ParseRole(claims.Role)
	if !ok {
		return Identity{}, ErrInvalidRole
	}

	user, err := a.store.GetUser(ctx, role, claims.UserID)
	if err != nil || user == nil || !user.IsActive {
		return Identity{}, ErrUserInactive
	}

	return Identity{UserID: user.ID, Role: role}, nil
}
