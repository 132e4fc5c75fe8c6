package reconcile

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"dispatchdesk/internal/docstore"
	"dispatchdesk/internal/domain"
	"dispatchdesk/internal/identity"
	"dispatchdesk/internal/modules/accesscode"
	"dispatchdesk/internal/modules/ban"
	"dispatchdesk/internal/modules/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

/* ==================== FAKE PROVIDER ==================== */

type fakeAccount struct {
	uid      string
	password string
}

type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount
	nextUID  int

	createCalls    int
	loginCalls     int
	federatedCalls int
	signOuts       []string

	createErr error // injected non-conflict creation failure
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]*fakeAccount{}}
}

func (p *fakeProvider) Create(_ context.Context, email, password string) (*identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++

	if p.createErr != nil {
		return nil, p.createErr
	}
	if _, taken := p.accounts[email]; taken {
		return nil, identity.ErrExists
	}

	p.nextUID++
	acc := &fakeAccount{uid: "uid-" + string(rune('a'+p.nextUID-1)), password: password}
	p.accounts[email] = acc
	return &identity.Identity{UID: acc.uid, Email: email}, nil
}

func (p *fakeProvider) Login(_ context.Context, email, password string) (*identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loginCalls++

	acc, ok := p.accounts[email]
	if !ok || acc.password != password {
		return nil, identity.ErrBadCredential
	}
	return &identity.Identity{UID: acc.uid, Email: email}, nil
}

func (p *fakeProvider) FederatedSignIn(_ context.Context, idToken string) (*identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.federatedCalls++

	// Tokens are "fed:<email>" in these tests.
	if len(idToken) < 5 || idToken[:4] != "fed:" {
		return nil, identity.ErrBadToken
	}
	email := idToken[4:]
	if acc, ok := p.accounts[email]; ok {
		return &identity.Identity{UID: acc.uid, Email: email}, nil
	}
	p.nextUID++
	acc := &fakeAccount{uid: "uid-" + string(rune('a'+p.nextUID-1))}
	p.accounts[email] = acc
	return &identity.Identity{UID: acc.uid, Email: email}, nil
}

func (p *fakeProvider) SignOut(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOuts = append(p.signOuts, uid)
	return nil
}

/* ==================== FIXTURE ==================== */

type fixture struct {
	service  *Service
	provider *fakeProvider
	store    *docstore.GormStore
	profiles *profile.Service
	bans     *ban.Service
}

func newFixture(t *testing.T) *fixture {
	if runtime.GOOS == "windows" {
		t.Skip("skipping sqlite test on windows because CGO is disabled")
	}

	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: ":memory:"}), &gorm.Config{})
	require.NoError(t, err)

	store := docstore.NewGormStore(db)
	require.NoError(t, store.Migrate())

	provider := newFakeProvider()
	profiles := profile.NewService(store, 5*time.Second)
	codes := accesscode.NewStore(store)

	return &fixture{
		service:  NewService(provider, profiles, codes),
		provider: provider,
		store:    store,
		profiles: profiles,
		bans:     ban.NewService(store, nil),
	}
}

func registerInput(code string) RegisterInput {
	return RegisterInput{
		Email:           "ops@dispatch.io",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		AccessCode:      code,
	}
}

/* ==================== VALIDATION ==================== */

func TestRegister_CodeMismatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RegisterOrRecover(context.Background(), registerInput("wrong-code"))
	assert.ErrorIs(t, err, ErrCodeMismatch)
	assert.Zero(t, f.provider.createCalls, "validation failures must not reach the provider")
}

func TestRegister_PasswordMismatch(t *testing.T) {
	f := newFixture(t)

	in := registerInput(accesscode.DefaultCode)
	in.ConfirmPassword = "different"

	_, err := f.service.RegisterOrRecover(context.Background(), in)
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Zero(t, f.provider.createCalls)
}

func TestRegister_WeakPassword(t *testing.T) {
	f := newFixture(t)

	in := registerInput(accesscode.DefaultCode)
	in.Password = "abc"
	in.ConfirmPassword = "abc"

	_, err := f.service.RegisterOrRecover(context.Background(), in)
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.Zero(t, f.provider.createCalls)
}

/* ==================== CREATE PATH ==================== */

func TestRegister_FreshEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.service.RegisterOrRecover(ctx, registerInput(accesscode.DefaultCode))
	require.NoError(t, err)

	assert.Equal(t, ResultCreated, out.Result)
	assert.Equal(t, domain.RoleAdmin, out.Role)
	assert.True(t, out.ProfileSynced)

	p, err := f.profiles.Get(ctx, out.Identity.UID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Equal(t, domain.ProviderEmail, p.AuthProvider)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Nil(t, p.RestoredAt)
}

func TestRegister_ProviderFailureLeavesProfileUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.provider.createErr = errors.New("provider melted down")

	_, err := f.service.RegisterOrRecover(ctx, registerInput(accesscode.DefaultCode))
	require.Error(t, err)
	assert.NotErrorIs(t, err, identity.ErrExists)

	docs, qerr := f.store.QueryWhere(ctx, docstore.CollectionUsers, profile.FieldEmail, "ops@dispatch.io")
	require.NoError(t, qerr)
	assert.Empty(t, docs)
}

/* ==================== RECOVERY PATH ==================== */

func TestRegister_RepeatIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := registerInput(accesscode.DefaultCode)

	first, err := f.service.RegisterOrRecover(ctx, in)
	require.NoError(t, err)
	require.Equal(t, ResultCreated, first.Result)

	created, err := f.profiles.Get(ctx, first.Identity.UID)
	require.NoError(t, err)

	second, err := f.service.RegisterOrRecover(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ResultRestored, second.Result)
	assert.Equal(t, first.Identity.UID, second.Identity.UID)

	restored, err := f.profiles.Get(ctx, first.Identity.UID)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, restored.CreatedAt, "createdAt is written once, never again")
	require.NotNil(t, restored.RestoredAt)

	// At most one profile document per identity, ever.
	docs, err := f.store.QueryWhere(ctx, docstore.CollectionUsers, profile.FieldEmail, "ops@dispatch.io")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestRegister_RecoveryRepairsMissingProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Simulate a crash between identity creation and profile write.
	_, err := f.provider.Create(ctx, "ops@dispatch.io", "secret1")
	require.NoError(t, err)

	out, err := f.service.RegisterOrRecover(ctx, registerInput(accesscode.DefaultCode))
	require.NoError(t, err)
	assert.Equal(t, ResultRestored, out.Result)

	p, err := f.profiles.Get(ctx, out.Identity.UID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.False(t, p.CreatedAt.IsZero(), "repair of a missing profile still stamps createdAt")
}

func TestRegister_WrongPasswordOnExistingEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.service.RegisterOrRecover(ctx, registerInput(accesscode.DefaultCode))
	require.NoError(t, err)

	before, err := f.store.Get(ctx, docstore.CollectionUsers, first.Identity.UID)
	require.NoError(t, err)

	in := registerInput(accesscode.DefaultCode)
	in.Password = "not-the-password"
	in.ConfirmPassword = "not-the-password"

	out, err := f.service.RegisterOrRecover(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ResultIncorrectCredential, out.Result)

	after, err := f.store.Get(ctx, docstore.CollectionUsers, first.Identity.UID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a failed recovery must not mutate the profile")
}

/* ==================== BAN ENFORCEMENT ==================== */

func TestRegister_BannedAccountIsDeniedAndSignedOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := registerInput(accesscode.DefaultCode)

	first, err := f.service.RegisterOrRecover(ctx, in)
	require.NoError(t, err)
	require.NoError(t, f.bans.Ban(ctx, first.Identity.UID))

	out, err := f.service.RegisterOrRecover(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ResultDenied, out.Result)
	assert.Contains(t, f.provider.signOuts, first.Identity.UID)

	// Denial must not reactivate anything.
	p, err := f.profiles.Get(ctx, first.Identity.UID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBanned, p.Status)

	// Unban is an explicit action, after which recovery works again.
	require.NoError(t, f.bans.Unban(ctx, first.Identity.UID))

	out, err = f.service.RegisterOrRecover(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ResultRestored, out.Result)
}

func TestSignIn_BannedAccountIsDenied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.service.RegisterOrRecover(ctx, registerInput(accesscode.DefaultCode))
	require.NoError(t, err)
	require.NoError(t, f.bans.Ban(ctx, first.Identity.UID))

	out, err := f.service.SignIn(ctx, "ops@dispatch.io", "secret1")
	require.NoError(t, err)
	assert.Equal(t, ResultDenied, out.Result)
	assert.Contains(t, f.provider.signOuts, first.Identity.UID)
}

func TestSignIn_ActiveAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.RegisterOrRecover(ctx, registerInput(accesscode.DefaultCode))
	require.NoError(t, err)

	out, err := f.service.SignIn(ctx, "ops@dispatch.io", "secret1")
	require.NoError(t, err)
	assert.Equal(t, ResultSignedIn, out.Result)
	assert.Equal(t, domain.RoleAdmin, out.Role)
}

func TestSignIn_WrongPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.RegisterOrRecover(ctx, registerInput(accesscode.DefaultCode))
	require.NoError(t, err)

	_, err = f.service.SignIn(ctx, "ops@dispatch.io", "wrong")
	assert.ErrorIs(t, err, identity.ErrBadCredential)
}

/* ==================== FEDERATED ==================== */

func TestFederated_CodeCheckedBeforeProvider(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.FederatedSignIn(context.Background(), "fed:ops@dispatch.io", "wrong-code")
	assert.ErrorIs(t, err, ErrCodeMismatch)
	assert.Zero(t, f.provider.federatedCalls)
}

func TestFederated_FirstSignInProvisionsProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.service.FederatedSignIn(ctx, "fed:ops@dispatch.io", accesscode.DefaultCode)
	require.NoError(t, err)
	assert.Equal(t, ResultRestored, out.Result)

	p, err := f.profiles.Get(ctx, out.Identity.UID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.Equal(t, domain.ProviderFederated, p.AuthProvider)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Nil(t, p.RestoredAt, "first federated provisioning is not a recovery")
}

func TestFederated_ExistingProfileIsRecovery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.service.FederatedSignIn(ctx, "fed:ops@dispatch.io", accesscode.DefaultCode)
	require.NoError(t, err)

	second, err := f.service.FederatedSignIn(ctx, "fed:ops@dispatch.io", accesscode.DefaultCode)
	require.NoError(t, err)
	require.Equal(t, first.Identity.UID, second.Identity.UID)

	p, err := f.profiles.Get(ctx, second.Identity.UID)
	require.NoError(t, err)
	assert.NotNil(t, p.RestoredAt)
}

func TestFederated_BannedIsDenied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.service.FederatedSignIn(ctx, "fed:ops@dispatch.io", accesscode.DefaultCode)
	require.NoError(t, err)
	require.NoError(t, f.bans.Ban(ctx, first.Identity.UID))

	out, err := f.service.FederatedSignIn(ctx, "fed:ops@dispatch.io", accesscode.DefaultCode)
	require.NoError(t, err)
	assert.Equal(t, ResultDenied, out.Result)
	assert.Contains(t, f.provider.signOuts, first.Identity.UID)
}

func TestFederated_BadToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.FederatedSignIn(context.Background(), "garbage", accesscode.DefaultCode)
	assert.ErrorIs(t, err, identity.ErrBadToken)
}

/* ==================== BAN CHECK AVAILABILITY ==================== */

type failingProfiles struct{}

func (failingProfiles) Upsert(_ context.Context, _ *identity.Identity, _ docstore.Fields, _ bool) bool {
	return false
}

func (failingProfiles) Get(_ context.Context, _ string) (*domain.Profile, error) {
	return nil, errors.New("store down")
}

func TestRegister_UnansweredBanCheckRefusesAccess(t *testing.T) {
	ctx := context.Background()

	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: ":memory:"}), &gorm.Config{})
	require.NoError(t, err)
	store := docstore.NewGormStore(db)
	require.NoError(t, store.Migrate())

	provider := newFakeProvider()
	_, err = provider.Create(ctx, "ops@dispatch.io", "secret1")
	require.NoError(t, err)

	svc := NewService(provider, failingProfiles{}, accesscode.NewStore(store))

	_, err = svc.RegisterOrRecover(ctx, registerInput(accesscode.DefaultCode))
	assert.ErrorIs(t, err, ErrBanCheckUnavailable)
}
