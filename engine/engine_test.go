package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
)

func TestEmitter_OrderAndUnsubscribe(t *testing.T) {
	e := NewEmitter()
	var got []string

	offA := e.On("overlay", func(Event) { got = append(got, "a") })
	e.On("overlay", func(Event) { got = append(got, "b") })
	e.On("chat", func(Event) { got = append(got, "chat") })

	e.Emit(Event{Kind: "overlay"})
	assert.Equal(t, []string{"a", "b"}, got)

	offA()
	offA()
	got = nil
	e.Emit(Event{Kind: "overlay"})
	assert.Equal(t, []string{"b"}, got)
	assert.Equal(t, 1, e.Listeners("overlay"))
}

func TestEmitter_PanickingHandlerIsIsolated(t *testing.T) {
	e := NewEmitter()
	reached := false
	e.On("overlay", func(Event) { panic("boom") })
	e.On("overlay", func(Event) { reached = true })

	assert.NotPanics(t, func() { e.Emit(Event{Kind: "overlay"}) })
	assert.True(t, reached)
}

func TestLocalEngine_PersonaSwitch(t *testing.T) {
	e := NewLocalEngine(nil)
	ctx := context.Background()

	resp, err := e.ProcessRequest(ctx, Request{
		Type:  network.MsgTypePersonaSwitch,
		Login: "streamer",
		Data:  json.RawMessage(`{"persona":"dealer"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, network.MsgTypePersonaSwitched, resp.Type)
	p, ok := e.Persona("streamer")
	assert.True(t, ok)
	assert.Equal(t, "dealer", p)

	_, err = e.ProcessRequest(ctx, Request{
		Type: network.MsgTypePersonaSwitch,
		Data: json.RawMessage(`{"persona":"pirate"}`),
	})
	assert.ErrorIs(t, err, ErrUnknownPersona)
}

func TestLocalEngine_PlayerActionAndStatus(t *testing.T) {
	e := NewLocalEngine([]string{"acey"})
	ctx := context.Background()

	_, err := e.ProcessRequest(ctx, Request{
		Type:    network.MsgTypePlayerAction,
		Channel: "table-1",
		Data:    json.RawMessage(`{"playerId":"p1","action":"call","amount":20}`),
	})
	require.NoError(t, err)
	a, ok := e.LastAction("table-1")
	require.True(t, ok)
	assert.Equal(t, "call", a.Action)

	resp, err := e.ProcessRequest(ctx, Request{Type: network.MsgTypeStatus})
	require.NoError(t, err)
	stats, ok := resp.Data.(Stats)
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.Requests[network.MsgTypePlayerAction])

	_, err = e.ProcessRequest(ctx, Request{Type: "shuffle"})
	assert.True(t, errors.Is(err, ErrUnsupportedRequest))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.ProcessRequest(cancelled, Request{Type: network.MsgTypeStatus})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalEngine_PublishGameState(t *testing.T) {
	e := NewLocalEngine(nil)
	var got Event
	e.On("overlay", func(ev Event) { got = ev })

	require.NoError(t, e.PublishGameState("table-1", json.RawMessage(`{"phase":"betting"}`)))
	assert.Equal(t, "table-1", got.Channel)
	assert.JSONEq(t, `{"type":"gameState","data":{"phase":"betting"}}`, string(got.Payload))

	assert.Error(t, e.PublishGameState("table-1", json.RawMessage(`{`)))
}
