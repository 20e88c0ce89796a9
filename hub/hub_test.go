package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/models"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send: make(chan []byte, 10),
		Room: "room1",
	}
	other := &Client{
		Send: make(chan []byte, 10),
		Room: "room2",
	}
	require.True(t, hub.Register(client))
	require.True(t, hub.Register(other))

	require.True(t, hub.PublishNotice("room1", models.Notice{Level: models.NoticeSuccess, Message: "hello test"}))

	select {
	case got := <-client.Send:
		var f Frame
		require.NoError(t, json.Unmarshal(got, &f))
		assert.Equal(t, FrameToast, f.Type)
		assert.Equal(t, "hello test", f.Notice.Message)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for message")
	}
	assert.Len(t, other.Send, 0)

	hub.Unregister(client)
	// Run closes Send once the client is gone.
	select {
	case _, ok := <-client.Send:
		assert.False(t, ok)
	case <-time.After(1 * time.Second):
		t.Fatal("send channel not closed")
	}
	// A second unregister must not close twice.
	hub.Unregister(client)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	slow := &Client{Send: make(chan []byte, 1), Room: "r"}
	slow.Send <- []byte("backlog")
	require.True(t, hub.Register(slow))
	require.True(t, hub.Publish("r", []byte("x")))
	// Run takes the next message only after finishing the previous one
	require.True(t, hub.Publish("other", []byte("y")))

	// the backlog is still delivered, then the channel is closed
	deadline := time.After(time.Second)
	var got []string
	for {
		select {
		case msg, ok := <-slow.Send:
			if !ok {
				assert.Equal(t, []string{"backlog"}, got)
				return
			}
			got = append(got, string(msg))
		case <-deadline:
			t.Fatal("slow client was not dropped")
		}
	}
}

func TestHubStop(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	c := &Client{Send: make(chan []byte, 1), Room: "r"}
	require.True(t, hub.Register(c))
	hub.Stop()
	hub.Stop()

	assert.False(t, hub.Publish("r", []byte("x")))
	assert.False(t, hub.Register(&Client{Send: make(chan []byte, 1), Room: "r"}))
	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client not closed on stop")
	}
}

func TestServeStreamsHelloThenFrames(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	snap := models.NewCartSnapshot([]models.CartLine{
		{Identity: "A", Name: "Alpha", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
	}, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "s1", CartFrame(snap))
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first Frame
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, FrameCart, first.Type)
	require.NotNil(t, first.Cart)
	assert.Equal(t, uint64(3), first.Cart.Version)
	assert.Equal(t, 2, first.Cart.Count)

	require.True(t, hub.PublishNotice("s1", models.Notice{Level: models.NoticeError, Message: "boom"}))
	var second Frame
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, FrameToast, second.Type)
	assert.Equal(t, "boom", second.Notice.Message)
}

func TestServeChecksOrigin(t *testing.T) {
	hub := NewHub(nil)
	hub.AllowOrigins("https://shop.example.com", "https://*.preview.example.com")
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "s1")
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	cases := []struct {
		origin string
		ok     bool
	}{
		{"", true},
		{"https://shop.example.com", true},
		{"HTTPS://Shop.Example.com", true},
		{"https://pr-7.preview.example.com", true},
		{"https://evil.example.net", false},
		{"https://shop.example.com.evil.net", false},
	}
	for _, tc := range cases {
		t.Run(tc.origin, func(t *testing.T) {
			header := http.Header{}
			if tc.origin != "" {
				header.Set("Origin", tc.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tc.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestServeDefaultsToSameOrigin(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "s1")
	}))
	defer srv.Close()

	header := http.Header{"Origin": {"https://elsewhere.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
