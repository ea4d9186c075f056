package engine

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrUnsupportedRequest = errors.New("unsupported engine request")
	ErrUnknownPersona     = errors.New("unknown persona")
)

// Request is a client frame handed to the engine by the gateway.
type Request struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Login     string          `json:"login"`
	Channel   string          `json:"channel"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type Response struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Event is something the engine publishes. Channel and SessionID are
// optional routing tags.
type Event struct {
	Kind      string          `json:"kind"`
	Channel   string          `json:"channel,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type Handler func(Event)

// Engine is the rules/persona collaborator behind the gateway.
type Engine interface {
	ProcessRequest(ctx context.Context, req Request) (Response, error)
	// On subscribes h to events of kind and returns an unsubscribe func.
	On(kind string, h Handler) func()
	Emit(ev Event)
}
