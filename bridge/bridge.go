package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/broadcast"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/engine"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/session"
)

// Kind is the closed set of engine events the bridge forwards.
type Kind string

const (
	KindOverlay   Kind = "overlay"
	KindGameEvent Kind = "game_event"
	KindChat      Kind = "chat"
)

var Kinds = []Kind{KindOverlay, KindGameEvent, KindChat}

var (
	ErrUnknownEvent    = errors.New("unknown engine event")
	ErrInvalidPayload  = errors.New("invalid event payload")
	ErrSessionNotFound = errors.New("tagged session not found")
)

func ParseKind(raw string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, raw)
}

// Envelope is the frame every forwarded event is wrapped in.
type Envelope struct {
	Type      string          `json:"type"`
	Event     Kind            `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// tagged is the optional routing/type header inside an event payload.
type tagged struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Channel   string          `json:"channel"`
	SessionID string          `json:"sessionId"`
}

// SessionLookup resolves a session tag to its channel.
type SessionLookup interface {
	Get(sessionID string) (*session.Session, bool)
}

// Observer counts forwarded events. *monitor.Monitor satisfies it.
type Observer interface {
	IncBridgeEvent(kind string)
}

// Bridge forwards engine events through the broadcast router.
type Bridge struct {
	router   broadcast.Broadcaster
	sessions SessionLookup
	observer Observer

	unsubscribe []func()
	mutex       sync.Mutex
}

func New(router broadcast.Broadcaster, sessions SessionLookup, observer Observer) *Bridge {
	return &Bridge{router: router, sessions: sessions, observer: observer}
}

// Attach subscribes to every known event kind on eng.
func (b *Bridge) Attach(eng engine.Engine) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, k := range Kinds {
		kind := k
		off := eng.On(string(kind), func(ev engine.Event) {
			if _, err := b.Forward(ev); err != nil {
				logger.Log.Warnf("bridge: dropped %s event: %v", kind, err)
			}
		})
		b.unsubscribe = append(b.unsubscribe, off)
	}
}

// Detach drops every subscription made by Attach.
func (b *Bridge) Detach() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, off := range b.unsubscribe {
		off()
	}
	b.unsubscribe = nil
}

// Wrap builds the envelope for ev without sending it.
func (b *Bridge) Wrap(ev engine.Event) (Envelope, error) {
	kind, err := ParseKind(ev.Kind)
	if err != nil {
		return Envelope{}, err
	}

	payload := bytes.TrimSpace(ev.Payload)
	env := Envelope{
		Event:     kind,
		Data:      payload,
		Channel:   ev.Channel,
		Timestamp: network.Now(),
	}

	var tag tagged
	if len(payload) > 0 && payload[0] == '{' {
		if err := json.Unmarshal(payload, &tag); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	} else if len(payload) > 0 && !json.Valid(payload) {
		return Envelope{}, fmt.Errorf("%w: not JSON", ErrInvalidPayload)
	}

	switch kind {
	case KindOverlay:
		// the overlay payload names its own frame type
		env.Type = network.MsgTypeOverlayEvent
		if tag.Type != "" {
			env.Type = tag.Type
			env.Data = tag.Data
		}
	case KindGameEvent:
		env.Type = network.MsgTypeGameEvent
	case KindChat:
		env.Type = network.MsgTypeChat
	}

	if env.Channel == "" {
		env.Channel = tag.Channel
	}
	sessionID := ev.SessionID
	if sessionID == "" {
		sessionID = tag.SessionID
	}
	if env.Channel == "" && sessionID != "" {
		// a session-scoped event never widens to a global broadcast
		var s *session.Session
		ok := false
		if b.sessions != nil {
			s, ok = b.sessions.Get(sessionID)
		}
		if !ok {
			return Envelope{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		env.Channel = s.Channel
	}
	return env, nil
}

// Forward wraps ev and sends it: channel-scoped when the event is tagged
// with a channel or session, to every session otherwise.
func (b *Bridge) Forward(ev engine.Event) (broadcast.Result, error) {
	env, err := b.Wrap(ev)
	if err != nil {
		return broadcast.Result{}, err
	}
	data, err := network.Encode(env)
	if err != nil {
		return broadcast.Result{}, err
	}
	if b.observer != nil {
		b.observer.IncBridgeEvent(string(env.Event))
	}

	if env.Channel == "" {
		return b.router.Broadcast(data), nil
	}
	res, err := b.router.BroadcastToChannel(env.Channel, data)
	if errors.Is(err, broadcast.ErrChannelNotFound) {
		// nobody is watching that channel yet
		return res, nil
	}
	return res, err
}
