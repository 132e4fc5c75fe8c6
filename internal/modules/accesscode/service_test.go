package accesscode

import (
	"context"
	"runtime"
	"testing"

	"dispatchdesk/internal/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

func testStore(t *testing.T) *Store {
	if runtime.GOOS == "windows" {
		t.Skip("skipping sqlite test on windows because CGO is disabled")
	}

	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: ":memory:"}), &gorm.Config{})
	require.NoError(t, err)

	docs := docstore.NewGormStore(db)
	require.NoError(t, docs.Migrate())
	return NewStore(docs)
}

func TestGet_FallbackWhenUnset(t *testing.T) {
	store := testStore(t)

	code, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultCode, code)
}

func TestSet_TooShort(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	err := store.Set(ctx, "ab")
	assert.ErrorIs(t, err, ErrCodeTooShort)

	// The failed rotation must not disturb the stored value.
	code, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultCode, code)
}

func TestSet_VisibleToNextGet(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	require.NoError(t, store.Set(ctx, "abcde"))

	code, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abcde", code)
}

func TestVerify_ReadsCurrentValue(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	ok, err := store.Verify(ctx, DefaultCode)
	require.NoError(t, err)
	assert.True(t, ok)

	// A rotation between form load and submit must invalidate the old
	// code: Verify reads the store, it never compares a cached value.
	require.NoError(t, store.Set(ctx, "rotated-99"))

	ok, err = store.Verify(ctx, DefaultCode)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Verify(ctx, "rotated-99")
	require.NoError(t, err)
	assert.True(t, ok)
}
