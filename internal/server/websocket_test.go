package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/methodwatch/internal/core/watch"
)

func TestHub_Stream(t *testing.T) {
	s, _, hub := newTestServer(t, true)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/statistics/stream"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	s.watcher.Begin("Stream.op", 10_000).End()

	var got map[string]any
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "Stream.op", got["key"])
	require.Equal(t, "normal", got["classification"])
	require.NotEmpty(t, got["scopeId"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_DropsWhenFull(t *testing.T) {
	hub := NewHub(1, nil)
	sub := &subscriber{id: "slow", send: make(chan watch.Report, 1)}
	hub.subscribers[sub.id] = sub

	hub.Observe(watch.Report{Result: watch.Result{Key: "a"}})
	hub.Observe(watch.Report{Result: watch.Result{Key: "b"}})
	hub.Observe(watch.Report{Result: watch.Result{Key: "c"}})

	require.EqualValues(t, 2, hub.Dropped())
	require.Equal(t, "a", (<-sub.send).Key)

	hub.unsubscribe(sub)
	hub.unsubscribe(sub)
	_, open := <-sub.send
	require.False(t, open)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(4, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

	conn2, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer func() { _ = conn2.Close() }()
	require.NoError(t, conn2.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn2.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "closed hub refuses subscribers")
}
