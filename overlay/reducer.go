package overlay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/state"
)

var (
	ErrBadMessage   = errors.New("bad overlay message")
	ErrBadSnapshot  = errors.New("bad gameState snapshot")
	ErrUnhandledMsg = errors.New("unhandled message type")
)

// MaxChatLines bounds the chat backlog kept for the overlay.
const MaxChatLines = 50

// Message is a server frame as seen by an overlay.
type Message struct {
	Type      string          `json:"type"`
	Event     string          `json:"event,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

func ParseMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrBadMessage)
	}
	return msg, nil
}

// Game is the authoritative slice. A gameState message replaces it as a
// whole; nothing is carried over from the previous snapshot.
type Game struct {
	Phase          state.Phase
	Players        []Player
	CommunityCards []string
	Pot            int64
	MinBet         int64
	CurrentBet     int64
	CurrentPlayer  string
	Countdown      int
}

// Local is overlay-only UI state, untouched by snapshots except on a
// new-hand reset.
type Local struct {
	Selected []int
}

type ChatLine struct {
	User      string
	Message   string
	Timestamp int64
}

type Event struct {
	Type    string
	Event   string
	Channel string
	Data    json.RawMessage
}

type State struct {
	UserLogin     string
	Connected     bool
	ServerMessage string
	LastPong      int64
	Persona       string

	Game       Game
	Transition state.Transition
	Local      Local

	Chat       []ChatLine
	LastAction *network.PlayerActionData
	LastEvent  *Event
	LastError  string
}

func NewState(userLogin string) State {
	return State{
		UserLogin: userLogin,
		Game:      Game{Phase: state.PhaseWaiting},
	}
}

type gameStateData struct {
	Phase          string            `json:"phase"`
	Players        []json.RawMessage `json:"players"`
	CommunityCards []string          `json:"communityCards"`
	Pot            int64             `json:"pot"`
	MinBet         int64             `json:"minBet"`
	CurrentBet     int64             `json:"currentBet"`
	CurrentPlayer  string            `json:"currentPlayer"`
	Countdown      int               `json:"countdown"`
}

// Reduce returns the state after applying msg to prior. prior is never
// modified. On error the returned state equals prior.
func Reduce(prior State, msg Message) (State, error) {
	next := prior

	switch msg.Type {
	case network.MsgTypeConnected:
		next.Connected = true
		next.ServerMessage = msg.Message

	case network.MsgTypePong:
		next.LastPong = msg.Timestamp

	case network.MsgTypeGameState:
		var data gameStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return prior, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}
		phase, _ := state.ParsePhase(data.Phase)
		next.Game = Game{
			Phase:          phase,
			Players:        decodePlayers(data.Players),
			CommunityCards: data.CommunityCards,
			Pot:            data.Pot,
			MinBet:         data.MinBet,
			CurrentBet:     data.CurrentBet,
			CurrentPlayer:  data.CurrentPlayer,
			Countdown:      data.Countdown,
		}
		next.Transition = state.Next(prior.Game.Phase, phase)
		if next.Transition.Reset {
			next.Local = Local{}
		}

	case network.MsgTypeChat:
		var line network.ChatData
		if err := json.Unmarshal(msg.Data, &line); err != nil {
			return prior, fmt.Errorf("%w: chat: %v", ErrBadMessage, err)
		}
		chat := make([]ChatLine, 0, len(prior.Chat)+1)
		chat = append(chat, prior.Chat...)
		chat = append(chat, ChatLine{User: line.User, Message: line.Message, Timestamp: line.Timestamp})
		if len(chat) > MaxChatLines {
			chat = chat[len(chat)-MaxChatLines:]
		}
		next.Chat = chat

	case network.MsgTypePlayerAction:
		var action network.PlayerActionData
		if err := json.Unmarshal(msg.Data, &action); err != nil {
			return prior, fmt.Errorf("%w: playerAction: %v", ErrBadMessage, err)
		}
		next.LastAction = &action

	case network.MsgTypePersonaSwitched:
		var data network.PersonaSwitchData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return prior, fmt.Errorf("%w: persona_switched: %v", ErrBadMessage, err)
		}
		next.Persona = data.Persona

	case network.MsgTypeOverlayEvent, network.MsgTypeGameEvent, network.MsgTypeBroadcast, network.MsgTypeAudioGenerated:
		next.LastEvent = &Event{Type: msg.Type, Event: msg.Event, Channel: msg.Channel, Data: msg.Data}

	case network.MsgTypeError:
		next.LastError = msg.Error

	case network.MsgTypeStatus:
		// health snapshots carry nothing the overlay draws

	default:
		return prior, fmt.Errorf("%w: %q", ErrUnhandledMsg, msg.Type)
	}
	return next, nil
}

// ToggleSelect flips the selection of the viewer's held card at index.
func ToggleSelect(prior State, index int) State {
	next := prior
	selected := make([]int, 0, len(prior.Local.Selected)+1)
	found := false
	for _, i := range prior.Local.Selected {
		if i == index {
			found = true
			continue
		}
		selected = append(selected, i)
	}
	if !found {
		selected = append(selected, index)
	}
	next.Local = Local{Selected: selected}
	return next
}
