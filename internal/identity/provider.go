package identity

import (
	"context"
	"errors"
)

// Identity is the provider-owned account record. Immutable once created;
// the profile document references it by UID and never duplicates it.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

var (
	// ErrExists signals a creation conflict: an identity with that email
	// already exists. Callers treat it as recoverable, not as failure.
	ErrExists = errors.New("identity already exists")

	// ErrBadCredential signals a login attempt with a wrong password.
	ErrBadCredential = errors.New("invalid credentials")

	// ErrBadToken signals a federated token the provider rejected.
	ErrBadToken = errors.New("invalid federated token")
)

// Provider is the external identity service. Credentials live entirely on
// the provider side; this service only ever holds them in flight.
type Provider interface {
	Create(ctx context.Context, email, password string) (*Identity, error)
	Login(ctx context.Context, email, password string) (*Identity, error)
	FederatedSignIn(ctx context.Context, idToken string) (*Identity, error)
	SignOut(ctx context.Context, uid string) error
}
