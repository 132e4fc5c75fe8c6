package ban

import (
	"context"
	"errors"
	"fmt"

	"dispatchdesk/internal/docstore"
	"dispatchdesk/internal/domain"
	"dispatchdesk/internal/modules/profile"
)

var ErrProfileNotFound = errors.New("no profile for that identity")

type notifier interface {
	RosterChanged(uid string)
}

// Service flips a profile's status between active and banned with
// single-field merge-writes. Ban is the only suspension mechanism:
// identities and profiles are never deleted, and an unban is always an
// explicit admin action, never a side effect of some other flow.
//
// Self-ban is rejected by the HTTP layer; this service does not know who
// the caller is and must not be exposed without that check.
type Service struct {
	store  docstore.Store
	notify notifier
}

func NewService(store docstore.Store, notify notifier) *Service {
	return &Service{store: store, notify: notify}
}

func (s *Service) Ban(ctx context.Context, uid string) error {
	return s.setStatus(ctx, uid, domain.StatusBanned)
}

func (s *Service) Unban(ctx context.Context, uid string) error {
	return s.setStatus(ctx, uid, domain.StatusActive)
}

// setStatus is idempotent: writing the status a profile already has is a
// no-op success. Store failures surface — a silently dropped ban would be
// an open door.
func (s *Service) setStatus(ctx context.Context, uid string, status domain.AccountStatus) error {
	_, err := s.store.Get(ctx, docstore.CollectionUsers, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("ban status read: %w", err)
	}

	if err := s.store.MergeWrite(ctx, docstore.CollectionUsers, uid, docstore.Fields{
		profile.FieldStatus: string(status),
	}); err != nil {
		return fmt.Errorf("ban status write: %w", err)
	}

	if s.notify != nil {
		s.notify.RosterChanged(uid)
	}
	return nil
}
