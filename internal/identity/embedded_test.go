package identity

import (
	"context"
	"runtime"
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

func testProvider(t *testing.T) *EmbeddedProvider {
	if runtime.GOOS == "windows" {
		t.Skip("skipping sqlite test on windows because CGO is disabled")
	}

	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: ":memory:"}), &gorm.Config{})
	require.NoError(t, err)

	p := NewEmbeddedProvider(db)
	require.NoError(t, p.Migrate())
	return p
}

func TestCreateAndLogin(t *testing.T) {
	ctx := context.Background()
	p := testProvider(t)

	created, err := p.Create(ctx, "Ops@Dispatch.io", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "ops@dispatch.io", created.Email)

	ident, err := p.Login(ctx, "ops@dispatch.io", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.UID, ident.UID)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	p := testProvider(t)

	_, err := p.Create(ctx, "ops@dispatch.io", "secret1")
	require.NoError(t, err)

	_, err = p.Create(ctx, "ops@dispatch.io", "other-secret")
	assert.ErrorIs(t, err, ErrExists)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	p := testProvider(t)

	_, err := p.Create(ctx, "ops@dispatch.io", "secret1")
	require.NoError(t, err)

	_, err = p.Login(ctx, "ops@dispatch.io", "wrong")
	assert.ErrorIs(t, err, ErrBadCredential)
}

func TestLogin_UnknownEmail(t *testing.T) {
	p := testProvider(t)

	_, err := p.Login(context.Background(), "nobody@dispatch.io", "whatever")
	assert.ErrorIs(t, err, ErrBadCredential)
}

func federatedToken(t *testing.T, email, name string) string {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"email": email,
		"name":  name,
	})
	signed, err := token.SignedString([]byte("upstream"))
	require.NoError(t, err)
	return signed
}

func TestFederatedSignIn_ProvisionsOnFirstSight(t *testing.T) {
	ctx := context.Background()
	p := testProvider(t)

	first, err := p.FederatedSignIn(ctx, federatedToken(t, "fed@dispatch.io", "Fed Eration"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.UID)
	assert.Equal(t, "Fed Eration", first.Name)

	second, err := p.FederatedSignIn(ctx, federatedToken(t, "fed@dispatch.io", "Fed Eration"))
	require.NoError(t, err)
	assert.Equal(t, first.UID, second.UID)
}

func TestFederatedSignIn_BadToken(t *testing.T) {
	p := testProvider(t)

	_, err := p.FederatedSignIn(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestLogin_FederatedOnlyAccountHasNoPassword(t *testing.T) {
	ctx := context.Background()
	p := testProvider(t)

	_, err := p.FederatedSignIn(ctx, federatedToken(t, "fed@dispatch.io", ""))
	require.NoError(t, err)

	_, err = p.Login(ctx, "fed@dispatch.io", "")
	assert.ErrorIs(t, err, ErrBadCredential)
}
