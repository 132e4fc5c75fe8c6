package reconcile

import (
	"context"
	"errors"
	"fmt"

	"dispatchdesk/internal/docstore"
	"dispatchdesk/internal/domain"
	"dispatchdesk/internal/identity"
	"dispatchdesk/internal/metrics"
	"dispatchdesk/internal/modules/profile"
)

const minPasswordLen = 6

type Result string

const (
	ResultCreated             Result = "created"
	ResultRestored            Result = "restored"
	ResultDenied              Result = "denied"
	ResultIncorrectCredential Result = "incorrect_credential"
	ResultSignedIn            Result = "signed_in"
)

// Outcome is the structured result of a provisioning or sign-in flow.
// ProfileSynced distinguishes "fully succeeded" from "succeeded with the
// profile projection still pending"; callers must not assume the profile
// document reflects this call until the next read.
type Outcome struct {
	Result        Result
	Identity      *identity.Identity
	Role          domain.Role
	ProfileSynced bool
}

// Service drives the create-or-recover machine against the injected
// provider and stores. A registration re-run with the correct password
// repairs a half-completed signup (identity without profile, or a profile
// whose role drifted) instead of failing outright.
type Service struct {
	provider identity.Provider
	profiles ProfileStore
	codes    CodeVerifier
}

func NewService(provider identity.Provider, profiles ProfileStore, codes CodeVerifier) *Service {
	return &Service{provider: provider, profiles: profiles, codes: codes}
}

// RegisterOrRecover provisions an admin identity for the given input.
//
// Validation happens entirely before identity creation. On an
// exists-conflict the supplied password is tried against the existing
// identity; a successful login re-reads ban status before any write, so a
// ban applied between identity creation and profile repair still holds.
func (s *Service) RegisterOrRecover(ctx context.Context, in RegisterInput) (*Outcome, error) {
	st := StateIdle
	if err := s.advance(&st, EventSubmit); err != nil {
		return nil, err
	}

	if err := s.validate(ctx, in); err != nil {
		if e := s.advance(&st, EventInvalid); e != nil {
			return nil, e
		}
		metrics.RegistrationOutcomes.WithLabelValues("validation_error").Inc()
		return nil, err
	}
	if err := s.advance(&st, EventValid); err != nil {
		return nil, err
	}

	ident, err := s.provider.Create(ctx, in.Email, in.Password)
	switch {
	case err == nil:
		if e := s.advance(&st, EventCreateOK); e != nil {
			return nil, e
		}
		synced := s.profiles.Upsert(ctx, ident, adminProfileFields(domain.ProviderEmail), false)
		metrics.RegistrationOutcomes.WithLabelValues(string(ResultCreated)).Inc()
		return &Outcome{Result: ResultCreated, Identity: ident, Role: domain.RoleAdmin, ProfileSynced: synced}, nil

	case errors.Is(err, identity.ErrExists):
		if e := s.advance(&st, EventCreateConflict); e != nil {
			return nil, e
		}

	default:
		if e := s.advance(&st, EventCreateError); e != nil {
			return nil, e
		}
		metrics.RegistrationOutcomes.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("identity creation: %w", err)
	}

	// ConflictDetected: recover through a login with the supplied password.
	if err := s.advance(&st, EventRecover); err != nil {
		return nil, err
	}

	ident, err = s.provider.Login(ctx, in.Email, in.Password)
	switch {
	case errors.Is(err, identity.ErrBadCredential):
		if e := s.advance(&st, EventLoginBadCredential); e != nil {
			return nil, e
		}
		metrics.RegistrationOutcomes.WithLabelValues(string(ResultIncorrectCredential)).Inc()
		return &Outcome{Result: ResultIncorrectCredential}, nil

	case err != nil:
		if e := s.advance(&st, EventLoginError); e != nil {
			return nil, e
		}
		metrics.RegistrationOutcomes.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("recovery login: %w", err)
	}

	if err := s.advance(&st, EventLoginOK); err != nil {
		return nil, err
	}

	existing, err := s.lookupProfile(ctx, ident.UID)
	if err != nil {
		if e := s.advance(&st, EventBanCheckError); e != nil {
			return nil, e
		}
		metrics.RegistrationOutcomes.WithLabelValues("store_error").Inc()
		return nil, err
	}
	if existing != nil && existing.Banned() {
		if e := s.advance(&st, EventBanned); e != nil {
			return nil, e
		}
		s.deny(ctx, ident.UID)
		metrics.RegistrationOutcomes.WithLabelValues(string(ResultDenied)).Inc()
		return &Outcome{Result: ResultDenied}, nil
	}
	if err := s.advance(&st, EventNotBanned); err != nil {
		return nil, err
	}

	synced := s.profiles.Upsert(ctx, ident, adminProfileFields(domain.ProviderEmail), true)
	metrics.RegistrationOutcomes.WithLabelValues(string(ResultRestored)).Inc()
	return &Outcome{Result: ResultRestored, Identity: ident, Role: domain.RoleAdmin, ProfileSynced: synced}, nil
}

// FederatedSignIn runs the collapsed federated machine: the access code is
// checked before the federated flow starts, and there is no password, so
// the only terminal states are Denied and Restored.
func (s *Service) FederatedSignIn(ctx context.Context, idToken, accessCode string) (*Outcome, error) {
	ok, err := s.codes.Verify(ctx, accessCode)
	if err != nil {
		return nil, fmt.Errorf("access code check: %w", err)
	}
	if !ok {
		metrics.RegistrationOutcomes.WithLabelValues("validation_error").Inc()
		return nil, ErrCodeMismatch
	}

	ident, err := s.provider.FederatedSignIn(ctx, idToken)
	if err != nil {
		if errors.Is(err, identity.ErrBadToken) {
			return nil, err
		}
		metrics.RegistrationOutcomes.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("federated sign-in: %w", err)
	}

	existing, err := s.lookupProfile(ctx, ident.UID)
	if err != nil {
		metrics.RegistrationOutcomes.WithLabelValues("store_error").Inc()
		return nil, err
	}
	if existing != nil && existing.Banned() {
		s.deny(ctx, ident.UID)
		metrics.RegistrationOutcomes.WithLabelValues(string(ResultDenied)).Inc()
		return &Outcome{Result: ResultDenied}, nil
	}

	synced := s.profiles.Upsert(ctx, ident, adminProfileFields(domain.ProviderFederated), existing != nil)
	metrics.RegistrationOutcomes.WithLabelValues(string(ResultRestored)).Inc()
	return &Outcome{Result: ResultRestored, Identity: ident, Role: domain.RoleAdmin, ProfileSynced: synced}, nil
}

// SignIn is the plain login path. The ban check runs before any session
// is issued; a banned account is signed straight back out. SignIn never
// writes the profile.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Outcome, error) {
	ident, err := s.provider.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrBadCredential) {
			return nil, err
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	existing, err := s.lookupProfile(ctx, ident.UID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Banned() {
		s.deny(ctx, ident.UID)
		return &Outcome{Result: ResultDenied}, nil
	}

	role := domain.RoleUser
	if existing != nil && existing.Role != "" {
		role = existing.Role
	}
	return &Outcome{Result: ResultSignedIn, Identity: ident, Role: role, ProfileSynced: true}, nil
}

func (s *Service) validate(ctx context.Context, in RegisterInput) error {
	ok, err := s.codes.Verify(ctx, in.AccessCode)
	if err != nil {
		return fmt.Errorf("access code check: %w", err)
	}
	if !ok {
		return ErrCodeMismatch
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(in.Password) < minPasswordLen {
		return ErrWeakPassword
	}
	return nil
}

// lookupProfile returns nil for a missing profile: an identity without a
// profile is the half-completed signup this machine exists to repair, not
// a banned account. Any other read failure refuses access.
func (s *Service) lookupProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	p, err := s.profiles.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBanCheckUnavailable, err)
	}
	return p, nil
}

func (s *Service) deny(ctx context.Context, uid string) {
	// The account stays banned and nothing else is written; the session
	// the provider just opened is closed again.
	_ = s.provider.SignOut(ctx, uid)
	metrics.BanDenials.Inc()
}

func (s *Service) advance(st *State, ev Event) error {
	next, err := Next(*st, ev)
	if err != nil {
		return err
	}
	*st = next
	return nil
}

func adminProfileFields(p domain.AuthProvider) docstore.Fields {
	return docstore.Fields{
		profile.FieldRole:         string(domain.RoleAdmin),
		profile.FieldStatus:       string(domain.StatusActive),
		profile.FieldAuthProvider: string(p),
	}
}
