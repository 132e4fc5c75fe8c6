package roster

import (
	"context"
	"fmt"

	"dispatchdesk/internal/docstore"
	"dispatchdesk/internal/domain"
	"dispatchdesk/internal/modules/profile"
)

type accessCodeReader interface {
	Get(ctx context.Context) (string, error)
}

// Service is the read side of the management surface: every call
// re-reads the store, there is no caching and no pagination guarantee.
type Service struct {
	store docstore.Store
	codes accessCodeReader
}

func NewService(store docstore.Store, codes accessCodeReader) *Service {
	return &Service{store: store, codes: codes}
}

// ListAdmins returns every profile holding the admin role, banned ones
// included — the roster is where bans get applied and lifted.
func (s *Service) ListAdmins(ctx context.Context) ([]domain.Profile, error) {
	docs, err := s.store.QueryWhere(ctx, docstore.CollectionUsers, profile.FieldRole, string(domain.RoleAdmin))
	if err != nil {
		return nil, fmt.Errorf("roster query: %w", err)
	}

	admins := make([]domain.Profile, 0, len(docs))
	for _, doc := range docs {
		admins = append(admins, *profile.FromFields(doc))
	}
	return admins, nil
}

func (s *Service) CurrentAccessCode(ctx context.Context) (string, error) {
	return s.codes.Get(ctx)
}
