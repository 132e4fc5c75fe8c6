package roster

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *Hub) watcherCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers)
}

func hubServer(t *testing.T, hub *Hub) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn)
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.watcherCount() == 1 },
		time.Second, 10*time.Millisecond)
	return srv, client
}

func TestHub_ConcurrentBroadcasts(t *testing.T) {
	hub := NewHub()
	srv, client := hubServer(t, hub)
	defer srv.Close()
	defer client.Close()

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hub.RosterChanged(fmt.Sprintf("uid-%d", i))
		}(i)
	}
	wg.Wait()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	got := make(map[string]bool)
	for len(got) < n {
		var ev changeEvent
		require.NoError(t, client.ReadJSON(&ev))
		assert.Equal(t, "roster_changed", ev.Type)
		got[ev.UID] = true
	}
}

func TestHub_AccessCodeChanged(t *testing.T) {
	hub := NewHub()
	srv, client := hubServer(t, hub)
	defer srv.Close()
	defer client.Close()

	hub.AccessCodeChanged()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev changeEvent
	require.NoError(t, client.ReadJSON(&ev))
	assert.Equal(t, "access_code_changed", ev.Type)
	assert.Empty(t, ev.UID)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub()
	srv, client := hubServer(t, hub)
	defer srv.Close()

	require.NoError(t, client.Close())

	require.Eventually(t, func() bool { return hub.watcherCount() == 0 },
		time.Second, 10*time.Millisecond)

	// Broadcasting with no watchers left must not block or panic.
	hub.RosterChanged("uid-gone")
}
