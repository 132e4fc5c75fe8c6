package accesscode

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"dispatchdesk/internal/docstore"
)

const (
	configDocID          = "admin_config"
	registrationKeyField = "registrationKey"

	// DefaultCode applies until an admin rotates the key. Rotation is
	// expected on first deployment.
	DefaultCode = "DISPATCH-ADMIN"

	minCodeLen = 5
)

// Store holds the single global registration secret in
// settings/admin_config. It is a shared static secret gating who may
// provision an admin identity, not a per-user credential, so length is
// the only rule enforced on rotation.
type Store struct {
	docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

// Get returns the current registration code, falling back to DefaultCode
// when no config document exists yet.
func (s *Store) Get(ctx context.Context) (string, error) {
	doc, err := s.docs.Get(ctx, docstore.CollectionSettings, configDocID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return DefaultCode, nil
		}
		return "", fmt.Errorf("access code read: %w", err)
	}
	code, _ := doc[registrationKeyField].(string)
	if code == "" {
		return DefaultCode, nil
	}
	return code, nil
}

// Set rotates the registration code. Store failures surface to the
// caller; a silent no-op here would leave admins believing a leaked code
// was retired.
func (s *Store) Set(ctx context.Context, newCode string) error {
	if len(newCode) < minCodeLen {
		return ErrCodeTooShort
	}
	if err := s.docs.MergeWrite(ctx, docstore.CollectionSettings, configDocID, docstore.Fields{
		registrationKeyField: newCode,
	}); err != nil {
		return fmt.Errorf("access code rotate: %w", err)
	}
	return nil
}

// Verify compares supplied against the code as stored right now. Reading
// inside the call, instead of comparing a value fetched when the form
// loaded, keeps a concurrent rotation from validating against a stale
// code.
func (s *Store) Verify(ctx context.Context, supplied string) (bool, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(supplied)) == 1, nil
}
