package profile

import (
	"context"
	"errors"
	"log"
	"time"

	"dispatchdesk/internal/docstore"
	"dispatchdesk/internal/domain"
	"dispatchdesk/internal/identity"
	"dispatchdesk/internal/metrics"
)

var ErrNotFound = errors.New("profile not found")

// Service projects identities into the users collection. Writes are
// best-effort: the identity provider is authoritative for account
// existence, the profile document is a denormalized projection, and a
// slow or unreachable store must not block the registration flow.
type Service struct {
	store        docstore.Store
	writeTimeout time.Duration
	now          func() time.Time
}

func NewService(store docstore.Store, writeTimeout time.Duration) *Service {
	return &Service{
		store:        store,
		writeTimeout: writeTimeout,
		now:          time.Now,
	}
}

// Upsert merge-writes the profile for ident, adding extra on top of the
// identity fields. createdAt is written only when the document does not
// already carry one; restoredAt only on recovery. Returns whether the
// write landed — false means the caller proceeded with the projection
// pending, not that the operation failed.
func (s *Service) Upsert(ctx context.Context, ident *identity.Identity, extra docstore.Fields, isRecovery bool) bool {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	fields := docstore.Fields{
		FieldUID:   ident.UID,
		FieldEmail: ident.Email,
	}
	if ident.Name != "" {
		fields[FieldName] = ident.Name
	}
	for k, v := range extra {
		fields[k] = v
	}

	now := s.now()
	switch created, err := s.hasCreatedAt(ctx, ident.UID); {
	case err == nil && !created:
		fields[FieldCreatedAt] = now.Format(time.RFC3339Nano)
	case err != nil:
		// Unreadable store: leave createdAt out rather than risk
		// stamping over an existing one. A later recovery fills it in.
	}
	if isRecovery {
		fields[FieldRestoredAt] = now.Format(time.RFC3339Nano)
	}

	if err := s.store.MergeWrite(ctx, docstore.CollectionUsers, ident.UID, fields); err != nil {
		log.Printf("profile: merge-write for %s did not land: %v", ident.UID, err)
		metrics.ProfileSyncFailures.Inc()
		return false
	}
	return true
}

// Get reads the profile document for uid.
func (s *Service) Get(ctx context.Context, uid string) (*domain.Profile, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionUsers, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return FromFields(doc), nil
}

func (s *Service) hasCreatedAt(ctx context.Context, uid string) (bool, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionUsers, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	_, ok := doc[FieldCreatedAt]
	return ok, nil
}
