package overlay

import (
	"bytes"
	"encoding/json"
)

// PlayerView is one roster entry of a gameState snapshot.
type PlayerView struct {
	ID            string   `json:"id"`
	Login         string   `json:"login"`
	DisplayName   string   `json:"displayName"`
	Avatar        string   `json:"avatar"`
	Balance       int64    `json:"balance"`
	Bet           int64    `json:"bet"`
	Cards         []string `json:"cards"`
	CardsRevealed bool     `json:"cardsRevealed"`
	Status        string   `json:"status"`
	Position      int      `json:"position"`
}

// Player is either Known or Missing. Rendering switches on the variant.
type Player interface {
	player()
}

type Known struct {
	View PlayerView
}

// Missing stands in for a null or incomplete roster entry at Seat.
type Missing struct {
	Seat int
}

func (Known) player()   {}
func (Missing) player() {}

// decodePlayers turns the raw roster into variants. One bad entry never
// drops the rest of the roster.
func decodePlayers(raw []json.RawMessage) []Player {
	players := make([]Player, 0, len(raw))
	for i, entry := range raw {
		players = append(players, decodePlayer(i, entry))
	}
	return players
}

func decodePlayer(seat int, raw json.RawMessage) Player {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Missing{Seat: seat}
	}
	var view PlayerView
	if err := json.Unmarshal(trimmed, &view); err != nil || view.ID == "" {
		return Missing{Seat: seat}
	}
	return Known{View: view}
}
