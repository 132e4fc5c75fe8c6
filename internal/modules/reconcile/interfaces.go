package reconcile

import (
	"context"

	"dispatchdesk/internal/docstore"
	"dispatchdesk/internal/domain"
	"dispatchdesk/internal/identity"
)

type ProfileStore interface {
	Upsert(ctx context.Context, ident *identity.Identity, extra docstore.Fields, isRecovery bool) bool
	Get(ctx context.Context, uid string) (*domain.Profile, error)
}

type CodeVerifier interface {
	Verify(ctx context.Context, supplied string) (bool, error)
}
