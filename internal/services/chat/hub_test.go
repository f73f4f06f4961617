package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeHandler struct {
	mu       sync.Mutex
	events   []Envelope
	presence []bool
	err      error
}

func (f *fakeHandler) HandleClientEvent(ctx context.Context, userID uint, env *Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *env)
	return f.err
}

func (f *fakeHandler) UserOnline(userID uint, online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presence = append(f.presence, online)
}

// newTestServer authenticates by ?uid= for tests
func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := strconv.Atoi(r.URL.Query().Get("uid"))
		_ = hub.ServeWS(w, r, uint(uid))
	}))
}

func dial(t *testing.T, srv *httptest.Server, uid int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=" + strconv.Itoa(uid)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHub_PingPongAndDelivery(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(Options{PingInterval: time.Second})
	handler := &fakeHandler{}
	hub.SetHandler(handler)
	srv := newTestServer(t, hub)

	alice := dial(t, srv, 1)
	bob := dial(t, srv, 2)
	waitFor(t, func() bool { return hub.ClientCount() == 2 })
	assert.True(t, hub.IsOnline(1))
	assert.False(t, hub.IsOnline(3))

	require.NoError(t, alice.WriteJSON(Envelope{Type: TypePing}))
	assert.Equal(t, TypePong, readEnvelope(t, alice).Type)

	hub.SendToUser(2, NewEnvelope(TypeMessageNew, 7, map[string]string{"content": "hi bob"}))
	got := readEnvelope(t, bob)
	assert.Equal(t, TypeMessageNew, got.Type)
	assert.EqualValues(t, 7, got.ConversationID)
	var data map[string]string
	require.NoError(t, json.Unmarshal(got.Data, &data))
	assert.Equal(t, "hi bob", data["content"])

	require.NoError(t, alice.WriteJSON(Envelope{Type: TypeTyping, ConversationID: 7}))
	waitFor(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return len(handler.events) == 1
	})

	alice.Close()
	bob.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	handler.mu.Lock()
	assert.Equal(t, []bool{true, true, false, false}, handler.presence)
	handler.mu.Unlock()

	hub.Close()
	srv.Close()
}

func TestHub_HandlerErrorIsReported(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(Options{PingInterval: time.Second})
	hub.SetHandler(&fakeHandler{err: errors.New("not a participant")})
	srv := newTestServer(t, hub)

	conn := dial(t, srv, 5)
	require.NoError(t, conn.WriteJSON(Envelope{Type: TypeMessageSend, ConversationID: 99}))
	env := readEnvelope(t, conn)
	assert.Equal(t, TypeError, env.Type)
	assert.Contains(t, string(env.Data), "not a participant")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, TypeError, readEnvelope(t, conn).Type)

	hub.Close()
	conn.Close()
	srv.Close()
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(Options{PingInterval: time.Second})
	srv := newTestServer(t, hub)
	conn := dial(t, srv, 1)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	conn.Close()
	srv.Close()
}

type memRelay struct {
	mu        sync.Mutex
	published [][]byte
	ch        chan []byte
}

func (m *memRelay) Publish(ctx context.Context, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, msg)
	return nil
}

func (m *memRelay) Subscribe(ctx context.Context) (<-chan []byte, error) { return m.ch, nil }

func (m *memRelay) Close() error {
	close(m.ch)
	return nil
}

func TestHub_RelayFanOut(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(Options{PingInterval: time.Second})
	relay := &memRelay{ch: make(chan []byte, 4)}
	require.NoError(t, hub.AttachRelay(context.Background(), relay))
	srv := newTestServer(t, hub)
	conn := dial(t, srv, 3)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	// local sends are published for the other instances
	hub.SendToUser(42, NewEnvelope(TypeNotify, 0, nil))
	relay.mu.Lock()
	require.Len(t, relay.published, 1)
	relay.mu.Unlock()

	// frames from another instance reach local clients
	frame, _ := json.Marshal(NewEnvelope(TypePresence, 0, map[string]interface{}{"user_id": 9, "online": true}))
	msg, _ := json.Marshal(relayMessage{Origin: "other-instance", UserIDs: []uint{3}, Frame: frame})
	relay.ch <- msg
	assert.Equal(t, TypePresence, readEnvelope(t, conn).Type)

	// our own frames echoed back are ignored
	own, _ := json.Marshal(relayMessage{Origin: hub.instanceID, UserIDs: []uint{3}, Frame: frame})
	relay.ch <- own
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "echoed frame must not be delivered twice")

	conn.Close()
	hub.Close()
	srv.Close()
}

type slowPresence struct {
	fakeHandler
}

func (s *slowPresence) UserOnline(userID uint, online bool) {
	time.Sleep(time.Millisecond)
	s.fakeHandler.UserOnline(userID, online)
}

func TestHub_PresenceFollowsRegistryOrder(t *testing.T) {
	hub := NewHub(Options{})
	handler := &slowPresence{}
	hub.SetHandler(handler)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				c := &Client{hub: hub, userID: 9, send: make(chan []byte, 1)}
				assert.True(t, hub.register(c))
				hub.unregister(c)
			}
		}()
	}
	wg.Wait()

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.NotEmpty(t, handler.presence)
	for i, online := range handler.presence {
		assert.Equal(t, i%2 == 0, online, "presence event %d", i)
	}
	assert.False(t, handler.presence[len(handler.presence)-1])
	assert.False(t, hub.IsOnline(9))
}
