package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
)

// DefaultPersonas are the voices an overlay can switch between.
var DefaultPersonas = []string{"acey", "helm", "dealer", "commentator"}

// LocalEngine is an in-process Engine. It tracks personas and the last
// action per channel and relays snapshots pushed into it as overlay
// events; poker rules stay with the upstream engine.
type LocalEngine struct {
	*Emitter

	personas    map[string]bool
	active      map[string]string
	lastActions map[string]network.PlayerActionData
	requests    map[string]int64
	mutex       sync.Mutex
}

func NewLocalEngine(personas []string) *LocalEngine {
	if len(personas) == 0 {
		personas = DefaultPersonas
	}
	allowed := make(map[string]bool, len(personas))
	for _, p := range personas {
		allowed[p] = true
	}
	return &LocalEngine{
		Emitter:     NewEmitter(),
		personas:    allowed,
		active:      make(map[string]string),
		lastActions: make(map[string]network.PlayerActionData),
		requests:    make(map[string]int64),
	}
}

func (e *LocalEngine) ProcessRequest(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	e.mutex.Lock()
	e.requests[req.Type]++
	e.mutex.Unlock()

	switch req.Type {
	case network.MsgTypePersonaSwitch:
		var data network.PersonaSwitchData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return Response{}, fmt.Errorf("%w: %v", network.ErrInvalidPayload, err)
		}
		if !e.personas[data.Persona] {
			return Response{}, fmt.Errorf("%w: %q", ErrUnknownPersona, data.Persona)
		}
		e.mutex.Lock()
		e.active[req.Login] = data.Persona
		e.mutex.Unlock()
		return Response{Type: network.MsgTypePersonaSwitched, Data: data}, nil

	case network.MsgTypePlayerAction:
		var action network.PlayerActionData
		if err := json.Unmarshal(req.Data, &action); err != nil {
			return Response{}, fmt.Errorf("%w: %v", network.ErrInvalidPayload, err)
		}
		e.mutex.Lock()
		e.lastActions[req.Channel] = action
		e.mutex.Unlock()
		return Response{Type: network.MsgTypePlayerAction, Data: action}, nil

	case network.MsgTypeStatus:
		return Response{Type: network.MsgTypeStatus, Data: e.Stats()}, nil
	}
	return Response{}, fmt.Errorf("%w: %q", ErrUnsupportedRequest, req.Type)
}

// Persona returns the persona login last switched to.
func (e *LocalEngine) Persona(login string) (string, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	p, ok := e.active[login]
	return p, ok
}

func (e *LocalEngine) LastAction(channel string) (network.PlayerActionData, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	a, ok := e.lastActions[channel]
	return a, ok
}

type Stats struct {
	Requests map[string]int64 `json:"requests"`
	Personas int              `json:"personas"`
}

func (e *LocalEngine) Stats() Stats {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	reqs := make(map[string]int64, len(e.requests))
	for k, v := range e.requests {
		reqs[k] = v
	}
	return Stats{Requests: reqs, Personas: len(e.active)}
}

// PublishGameState emits an authoritative snapshot for channel as an
// overlay event. An empty channel reaches every session.
func (e *LocalEngine) PublishGameState(channel string, snapshot json.RawMessage) error {
	if !json.Valid(snapshot) {
		return fmt.Errorf("%w: snapshot is not valid JSON", network.ErrInvalidPayload)
	}
	payload, err := json.Marshal(struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}{Type: network.MsgTypeGameState, Data: snapshot})
	if err != nil {
		return err
	}
	e.Emit(Event{Kind: "overlay", Channel: channel, Payload: payload})
	return nil
}
