package bridge

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/broadcast"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/channel"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/engine"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/session"
)

type MockConnection struct {
	mu      sync.Mutex
	frames  [][]byte
	sendErr error
}

func (m *MockConnection) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.frames = append(m.frames, data)
	return nil
}
func (m *MockConnection) ReadMessage() ([]byte, error) { return nil, nil }
func (m *MockConnection) IsOpen() bool                 { return true }
func (m *MockConnection) Close() error                 { return nil }
func (m *MockConnection) RemoteAddr() net.Addr         { return &net.TCPAddr{} }

func (m *MockConnection) envelopes(t *testing.T) []Envelope {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Envelope, 0, len(m.frames))
	for _, f := range m.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env)
	}
	return out
}

type harness struct {
	sessions *session.Manager
	channels *channel.Registry
	engine   *engine.LocalEngine
	bridge   *Bridge
	conns    map[string]*MockConnection
}

func newHarness() *harness {
	h := &harness{
		sessions: session.NewManager(),
		channels: channel.NewRegistry(),
		engine:   engine.NewLocalEngine(nil),
		conns:    make(map[string]*MockConnection),
	}
	router := broadcast.NewRouter(h.sessions, h.channels, nil)
	h.bridge = New(router, h.sessions, nil)
	h.bridge.Attach(h.engine)
	return h
}

func (h *harness) connect(id, ch string) *MockConnection {
	conn := &MockConnection{}
	s := session.NewSession(id, conn)
	s.Channel = ch
	h.sessions.Add(s)
	h.channels.Join(ch, id)
	h.conns[id] = conn
	return conn
}

func TestBridge_OverlayEventReachesOnlyTargetChannel(t *testing.T) {
	h := newHarness()
	a1 := h.connect("a1", "alpha")
	a2 := h.connect("a2", "alpha")
	b1 := h.connect("b1", "beta")

	h.engine.Emit(engine.Event{
		Kind:    "overlay",
		Channel: "alpha",
		Payload: json.RawMessage(`{"type":"overlayEvent","data":"X"}`),
	})

	for _, conn := range []*MockConnection{a1, a2} {
		envs := conn.envelopes(t)
		require.Len(t, envs, 1)
		assert.Equal(t, "overlayEvent", envs[0].Type)
		assert.Equal(t, KindOverlay, envs[0].Event)
		assert.Equal(t, `"X"`, string(envs[0].Data))
		assert.Equal(t, "alpha", envs[0].Channel)
		assert.NotZero(t, envs[0].Timestamp)
	}
	assert.Empty(t, b1.envelopes(t))
}

func TestBridge_UntaggedEventIsGlobal(t *testing.T) {
	h := newHarness()
	a := h.connect("a", "alpha")
	b := h.connect("b", "beta")

	h.engine.Emit(engine.Event{Kind: "game_event", Payload: json.RawMessage(`{"event":"hand_started"}`)})

	for _, conn := range []*MockConnection{a, b} {
		envs := conn.envelopes(t)
		require.Len(t, envs, 1)
		assert.Equal(t, "game_event", envs[0].Type)
		assert.JSONEq(t, `{"event":"hand_started"}`, string(envs[0].Data))
	}
}

func TestBridge_SessionTagResolvesChannel(t *testing.T) {
	h := newHarness()
	a := h.connect("a", "alpha")
	b := h.connect("b", "beta")

	h.engine.Emit(engine.Event{Kind: "chat", SessionID: "b", Payload: json.RawMessage(`{"user":"dealer","message":"gl"}`)})
	assert.Empty(t, a.envelopes(t))
	require.Len(t, b.envelopes(t), 1)
	assert.Equal(t, "chat", b.envelopes(t)[0].Type)

	// the tag can also ride inside the payload
	h.engine.Emit(engine.Event{Kind: "chat", Payload: json.RawMessage(`{"channel":"alpha","message":"hi"}`)})
	assert.Len(t, a.envelopes(t), 1)
	assert.Len(t, b.envelopes(t), 1)
}

func TestBridge_StaleSessionTagIsDropped(t *testing.T) {
	h := newHarness()
	a := h.connect("a", "alpha")
	b := h.connect("b", "beta")

	h.engine.Emit(engine.Event{Kind: "chat", SessionID: "gone", Payload: json.RawMessage(`{"message":"gl"}`)})
	assert.Empty(t, a.envelopes(t))
	assert.Empty(t, b.envelopes(t))

	_, err := h.bridge.Forward(engine.Event{Kind: "overlay", Payload: json.RawMessage(`{"sessionId":"gone","type":"overlayEvent"}`)})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, a.envelopes(t))

	detached := New(broadcast.NewRouter(h.sessions, h.channels, nil), nil, nil)
	_, err = detached.Forward(engine.Event{Kind: "chat", SessionID: "a", Payload: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, a.envelopes(t))
}

func TestBridge_RejectsUnknownKindAndBadPayload(t *testing.T) {
	h := newHarness()
	h.connect("a", "alpha")

	_, err := h.bridge.Forward(engine.Event{Kind: "telemetry", Payload: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = h.bridge.Forward(engine.Event{Kind: "overlay", Payload: json.RawMessage(`{"type":`)})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = h.bridge.Forward(engine.Event{Kind: "overlay", Payload: json.RawMessage(`nope`)})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	assert.Empty(t, h.conns["a"].envelopes(t))
}

func TestBridge_FailingSocketDoesNotBlockOthers(t *testing.T) {
	h := newHarness()
	good1 := h.connect("g1", "alpha")
	bad := h.connect("bad", "alpha")
	bad.sendErr = errors.New("broken pipe")
	good2 := h.connect("g2", "alpha")

	res, err := h.bridge.Forward(engine.Event{Kind: "overlay", Channel: "alpha", Payload: json.RawMessage(`{"type":"overlayEvent","data":1}`)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Delivered)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, good1.envelopes(t), 1)
	assert.Len(t, good2.envelopes(t), 1)
}

func TestBridge_EmptyChannelIsNotAnError(t *testing.T) {
	h := newHarness()
	res, err := h.bridge.Forward(engine.Event{Kind: "overlay", Channel: "ghost", Payload: json.RawMessage(`{}`)})
	assert.NoError(t, err)
	assert.Zero(t, res.Delivered)
}

func TestBridge_GameStateSnapshotKeepsType(t *testing.T) {
	h := newHarness()
	a := h.connect("a", "alpha")

	require.NoError(t, h.engine.PublishGameState("alpha", json.RawMessage(`{"phase":"betting","pot":10}`)))
	envs := a.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, "gameState", envs[0].Type)
	assert.JSONEq(t, `{"phase":"betting","pot":10}`, string(envs[0].Data))
}

func TestBridge_Detach(t *testing.T) {
	h := newHarness()
	a := h.connect("a", "alpha")
	h.bridge.Detach()

	h.engine.Emit(engine.Event{Kind: "overlay", Payload: json.RawMessage(`{}`)})
	assert.Empty(t, a.envelopes(t))
}

func TestNATSSource_SubjectMapping(t *testing.T) {
	src := NewNATSSource(nil, "engine", nil)

	ev, err := src.toEvent("engine.overlay.alpha", []byte(`{"type":"overlayEvent"}`))
	require.NoError(t, err)
	assert.Equal(t, "overlay", ev.Kind)
	assert.Equal(t, "alpha", ev.Channel)

	ev, err = src.toEvent("engine.game_event", []byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, ev.Channel)

	_, err = src.toEvent("engine.telemetry", nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = src.toEvent("other.overlay", nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
