package accesscode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	rotations int
}

func (n *recordingNotifier) AccessCodeChanged() {
	n.rotations++
}

func rotateRouter(t *testing.T) (*gin.Engine, *Store, *recordingNotifier) {
	gin.SetMode(gin.TestMode)

	store := testStore(t)
	notifier := &recordingNotifier{}
	handler := NewHandler(store, notifier)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/"))
	return r, store, notifier
}

func TestRotateCode_NotifiesWatchers(t *testing.T) {
	r, store, notifier := rotateRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/access-code",
		strings.NewReader(`{"access_code":"FLEET-OPS-2026"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, notifier.rotations)

	code, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FLEET-OPS-2026", code)
}

func TestRotateCode_TooShortDoesNotNotify(t *testing.T) {
	r, store, notifier := rotateRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/access-code",
		strings.NewReader(`{"access_code":"abc"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, notifier.rotations)

	code, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultCode, code)
}
