package window

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEvents struct {
	closed   chan uuid.UUID
	received chan Message
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{
		closed:   make(chan uuid.UUID, 4),
		received: make(chan Message, 16),
	}
}

func (r *recordingEvents) Closed(id uuid.UUID)                { r.closed <- id }
func (r *recordingEvents) Received(_ uuid.UUID, msg Message) { r.received <- msg }

func startBridge(t *testing.T, opts ...BridgeOption) (*Bridge, *[]string) {
	t.Helper()
	var opened []string
	opts = append([]BridgeOption{
		WithOpener(func(u string) error {
			opened = append(opened, u)
			return nil
		}),
		WithReconnectGrace(50 * time.Millisecond),
	}, opts...)

	b := NewBridge(BridgeConfig{ListenAddr: "127.0.0.1:0"}, opts...)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = b.Shutdown(ctx)
	})
	return b, &opened
}

func dialWindow(t *testing.T, b *Bridge, id uuid.UUID) *websocket.Conn {
	t.Helper()
	base, err := b.URL()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(base, "http")+IPCPath+"?window="+id.String(), nil)
	require.NoError(t, err)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg Message
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func TestBridgeOpenBeforeStart(t *testing.T) {
	b := NewBridge(BridgeConfig{}, WithOpener(func(string) error { return nil }))

	_, err := b.Open(uuid.New(), newRecordingEvents())
	assert.ErrorIs(t, err, ErrBridgeNotStarted)
}

func TestBridgeOpenShowsWindowURL(t *testing.T) {
	b, opened := startBridge(t)
	id := uuid.New()

	_, err := b.Open(id, newRecordingEvents())
	require.NoError(t, err)

	base, err := b.URL()
	require.NoError(t, err)
	require.Len(t, *opened, 1)
	assert.Equal(t, base+"/?window="+id.String(), (*opened)[0])
}

func TestBridgeWindowSizeHints(t *testing.T) {
	b := NewBridge(BridgeConfig{Width: 1024, Height: 768, MinWidth: 400})
	id := uuid.New()

	q := b.windowQuery(id)

	assert.Equal(t, id.String(), q.Get("window"))
	assert.Equal(t, "1024", q.Get("w"))
	assert.Equal(t, "768", q.Get("h"))
	assert.Equal(t, "400", q.Get("minw"))
	assert.False(t, q.Has("minh"))
}

func TestBridgeOpenerFailure(t *testing.T) {
	b := NewBridge(BridgeConfig{ListenAddr: "127.0.0.1:0"},
		WithOpener(func(string) error { return errors.New("no browser") }))
	require.NoError(t, b.Start(context.Background()))
	defer func() { _ = b.Shutdown(context.Background()) }()

	id := uuid.New()
	_, err := b.Open(id, newRecordingEvents())
	require.ErrorContains(t, err, "no browser")
	assert.Nil(t, b.surface(id))
}

func TestBridgeRoundTrip(t *testing.T) {
	b, _ := startBridge(t)
	events := newRecordingEvents()
	id := uuid.New()

	s, err := b.Open(id, events)
	require.NoError(t, err)

	// Sent before the page connects, so it is queued.
	require.NoError(t, s.Send(Message{Channel: ChannelAutoUpdateStatus, Payload: "checking for update"}))

	conn := dialWindow(t, b, id)
	defer conn.CloseNow()

	assert.Equal(t, Message{Channel: ChannelAutoUpdateStatus, Payload: "checking for update"}, readMessage(t, conn))

	require.NoError(t, s.Send(Message{Channel: ChannelAutoUpdateStatus, Payload: "new version found"}))
	assert.Equal(t, "new version found", readMessage(t, conn).Payload)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, Message{Channel: ChannelCheckUpdate}))

	select {
	case msg := <-events.received:
		assert.Equal(t, ChannelCheckUpdate, msg.Channel)
	case <-time.After(2 * time.Second):
		t.Fatal("message from the page was not received")
	}
}

func TestBridgeDisconnectClosesWindow(t *testing.T) {
	b, _ := startBridge(t)
	events := newRecordingEvents()
	id := uuid.New()

	s, err := b.Open(id, events)
	require.NoError(t, err)

	conn := dialWindow(t, b, id)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	select {
	case closed := <-events.closed:
		assert.Equal(t, id, closed)
	case <-time.After(2 * time.Second):
		t.Fatal("window was not reported closed")
	}

	assert.ErrorIs(t, s.Send(Message{Channel: ChannelAutoUpdateStatus}), ErrWindowClosed)
	assert.Nil(t, b.surface(id))
}

func TestBridgeReconnectWithinGrace(t *testing.T) {
	b, _ := startBridge(t, WithReconnectGrace(time.Second))
	events := newRecordingEvents()
	id := uuid.New()

	s, err := b.Open(id, events)
	require.NoError(t, err)

	first := dialWindow(t, b, id)
	require.NoError(t, first.Close(websocket.StatusNormalClosure, ""))

	second := dialWindow(t, b, id)
	defer second.CloseNow()

	require.NoError(t, s.Send(Message{Channel: ChannelAutoUpdateStatus, Payload: "after reload"}))
	assert.Equal(t, "after reload", readMessage(t, second).Payload)

	select {
	case <-events.closed:
		t.Fatal("reloaded window reported closed")
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestBridgeNeverConnectedClosesWindow(t *testing.T) {
	b, _ := startBridge(t, WithConnectTimeout(100*time.Millisecond))
	events := newRecordingEvents()
	id := uuid.New()

	s, err := b.Open(id, events)
	require.NoError(t, err)

	select {
	case closed := <-events.closed:
		assert.Equal(t, id, closed)
	case <-time.After(2 * time.Second):
		t.Fatal("window whose page never connected was not reported closed")
	}

	assert.ErrorIs(t, s.Send(Message{Channel: ChannelAutoUpdateStatus}), ErrWindowClosed)
	assert.Nil(t, b.surface(id))
}

func TestBridgeConnectWithinTimeout(t *testing.T) {
	b, _ := startBridge(t, WithConnectTimeout(300*time.Millisecond))
	events := newRecordingEvents()
	id := uuid.New()

	_, err := b.Open(id, events)
	require.NoError(t, err)

	conn := dialWindow(t, b, id)
	defer conn.CloseNow()

	select {
	case <-events.closed:
		t.Fatal("connected window reported closed")
	case <-time.After(600 * time.Millisecond):
	}
}

func TestBridgePendingQueueKeepsNewest(t *testing.T) {
	b, _ := startBridge(t)
	events := newRecordingEvents()
	id := uuid.New()

	s, err := b.Open(id, events)
	require.NoError(t, err)

	total := maxPending + 6
	for i := 0; i < total; i++ {
		require.NoError(t, s.Send(Message{Channel: ChannelAutoUpdateStatus, Payload: strconv.Itoa(i)}))
	}

	conn := dialWindow(t, b, id)
	defer conn.CloseNow()

	for i := total - maxPending; i < total; i++ {
		assert.Equal(t, strconv.Itoa(i), readMessage(t, conn).Payload)
	}
}

func TestAttachFlushFailureDropsConnection(t *testing.T) {
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.CloseNow()

	conn := <-accepted
	require.NoError(t, conn.CloseNow())

	events := newRecordingEvents()
	id := uuid.New()
	s := &wsSurface{id: id, events: events, grace: 50 * time.Millisecond, onGone: func(uuid.UUID) {}}
	require.NoError(t, s.Send(Message{Channel: ChannelAutoUpdateStatus, Payload: "first"}))
	require.NoError(t, s.Send(Message{Channel: ChannelAutoUpdateStatus, Payload: "second"}))

	require.Error(t, s.attach(conn))

	s.mu.Lock()
	assert.Nil(t, s.conn)
	assert.Len(t, s.pending, 2)
	s.mu.Unlock()

	select {
	case closed := <-events.closed:
		assert.Equal(t, id, closed)
	case <-time.After(2 * time.Second):
		t.Fatal("dropped connection did not start the reconnect grace period")
	}
}

func TestBridgeCloseSurface(t *testing.T) {
	b, _ := startBridge(t)
	events := newRecordingEvents()
	id := uuid.New()

	s, err := b.Open(id, events)
	require.NoError(t, err)
	conn := dialWindow(t, b, id)
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	readErr := make(chan error, 1)
	go func() {
		_, _, err := conn.Read(ctx)
		readErr <- err
	}()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(<-readErr))

	select {
	case <-events.closed:
		t.Fatal("closing from the shell side must not report a closed event")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBridgeIPCRejectsUnknownWindows(t *testing.T) {
	b := NewBridge(BridgeConfig{})
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	tests := []struct {
		query string
		want  int
	}{
		{"", http.StatusBadRequest},
		{"?window=not-a-uuid", http.StatusBadRequest},
		{"?window=" + uuid.New().String(), http.StatusNotFound},
	}

	for _, tt := range tests {
		resp, err := http.Get(srv.URL + IPCPath + tt.query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.want, resp.StatusCode, tt.query)
	}
}

func TestBridgeServesBuiltInUI(t *testing.T) {
	b := NewBridge(BridgeConfig{})
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), ChannelCheckUpdate)
	assert.Contains(t, string(body), ChannelAutoUpdateStatus)
}

func TestBridgeServesStaticDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>custom ui</p>"), 0644))

	b := NewBridge(BridgeConfig{StaticDir: dir})
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "custom ui")
}

func TestBridgeRedirectsToDevURL(t *testing.T) {
	b := NewBridge(BridgeConfig{DevURL: "http://localhost:5173/", StaticDir: "ignored"})
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/?window=abc")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173/?window=abc", resp.Header.Get("Location"))
	assert.Equal(t, []string{"localhost:5173"}, b.originPatterns())
}
