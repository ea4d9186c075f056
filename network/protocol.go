package network

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Message types carried in the "type" field of every JSON text frame.
const (
	MsgTypeConnected       = "connected"
	MsgTypePing            = "ping"
	MsgTypePong            = "pong"
	MsgTypeGameState       = "gameState"
	MsgTypePlayerAction    = "playerAction"
	MsgTypeChat            = "chat"
	MsgTypePersonaSwitch   = "persona_switch"
	MsgTypePersonaSwitched = "persona_switched"
	MsgTypeStatus          = "status"
	MsgTypeGameEvent       = "game_event"
	MsgTypeOverlayEvent    = "overlayEvent"
	MsgTypeBroadcast       = "broadcast"
	MsgTypeAudioGenerated  = "audio_generated"
	MsgTypeError           = "error"
)

var inboundTypes = map[string]bool{
	MsgTypePing:          true,
	MsgTypeGameState:     true,
	MsgTypePlayerAction:  true,
	MsgTypeChat:          true,
	MsgTypePersonaSwitch: true,
	MsgTypeStatus:        true,
	MsgTypeOverlayEvent:  true,
}

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrMissingType    = errors.New("missing message type")
	ErrUnknownType    = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid payload")
)

var validate = validator.New()

// Inbound is a decoded client frame. Data is kept raw until a handler
// binds it to its payload type.
type Inbound struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Decode parses a client frame. The returned error wraps one of the
// protocol sentinels so callers can answer with an error frame.
func Decode(raw []byte) (*Inbound, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrMalformedFrame
	}
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if in.Type == "" {
		return nil, ErrMissingType
	}
	if !inboundTypes[in.Type] {
		return &in, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
	return &in, nil
}

// Bind unmarshals Data into v and runs struct validation on it.
func (in *Inbound) Bind(v interface{}) error {
	if len(in.Data) == 0 {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(in.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// Outbound is the generic server frame.
type Outbound struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type ErrorFrame struct {
	Type      string `json:"type"`
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type ChatData struct {
	User      string `json:"user"`
	Message   string `json:"message" validate:"required,max=500"`
	Timestamp int64  `json:"timestamp"`
}

type PlayerActionData struct {
	PlayerID string `json:"playerId" validate:"required"`
	Action   string `json:"action" validate:"required"`
	Amount   int64  `json:"amount" validate:"gte=0"`
}

type PersonaSwitchData struct {
	Persona string `json:"persona" validate:"required"`
}

// Now returns the wire timestamp: milliseconds since the Unix epoch.
func Now() int64 {
	return time.Now().UnixMilli()
}

func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// NewMessage encodes a typed frame stamped with the current time.
func NewMessage(msgType string, data interface{}) ([]byte, error) {
	return Encode(Outbound{Type: msgType, Data: data, Timestamp: Now()})
}

func NewErrorMessage(errText, reason string) []byte {
	data, _ := Encode(ErrorFrame{
		Type:      MsgTypeError,
		Error:     errText,
		Reason:    reason,
		Timestamp: Now(),
	})
	return data
}
