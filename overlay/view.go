package overlay

import (
	"fmt"
	"strconv"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/chips"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/state"
)

const (
	LowTimeThreshold = 5

	UnknownPlayerName   = "Unknown Player"
	UnknownPlayerStatus = "unknown"
)

// PhaseDurations is the full countdown in seconds for each phase, used
// as the 100% mark of the timer bar.
var PhaseDurations = map[state.Phase]int{
	state.PhaseWaiting:  10,
	state.PhaseDealing:  10,
	state.PhaseBetting:  30,
	state.PhaseShowdown: 10,
	state.PhaseEarlyEnd: 10,
}

const defaultPhaseDuration = 30

func maxForPhase(phase state.Phase) int {
	if d, ok := PhaseDurations[phase]; ok {
		return d
	}
	return defaultPhaseDuration
}

// BettingControlsVisible is true only for the acting viewer during betting.
func BettingControlsVisible(currentPlayer, userLogin string, phase state.Phase) bool {
	return userLogin != "" && currentPlayer == userLogin && phase == state.PhaseBetting
}

type TimerView struct {
	Seconds int
	Label   string
	// Width is the bar width in percent, 0..100.
	Width   float64
	Warning bool
}

func RenderTimer(countdown int, phase state.Phase) TimerView {
	if countdown < 0 {
		countdown = 0
	}
	width := float64(countdown) / float64(maxForPhase(phase)) * 100
	if width > 100 {
		width = 100
	}
	return TimerView{
		Seconds: countdown,
		Label:   strconv.Itoa(countdown),
		Width:   width,
		Warning: countdown > 0 && countdown <= LowTimeThreshold,
	}
}

type PlayerRender struct {
	ID           string
	Name         string
	Avatar       string
	Balance      int64
	BalanceLabel string
	Bet          int64
	BetStack     chips.StackView
	Cards        []CardFace
	Status       string
	Position     int
	Acting       bool
	Missing      bool
}

func renderPlayer(p Player, currentPlayer string) PlayerRender {
	switch p := p.(type) {
	case Known:
		v := p.View
		name := v.DisplayName
		if name == "" {
			name = v.Login
		}
		if name == "" {
			name = UnknownPlayerName
		}
		status := v.Status
		if status == "" {
			status = UnknownPlayerStatus
		}
		return PlayerRender{
			ID:           v.ID,
			Name:         name,
			Avatar:       v.Avatar,
			Balance:      v.Balance,
			BalanceLabel: formatMoney(v.Balance),
			Bet:          v.Bet,
			BetStack:     chips.Stack(v.Bet, chips.DefaultLayout),
			Cards:        RenderCards(v.Cards, v.CardsRevealed),
			Status:       status,
			Position:     v.Position,
			Acting:       currentPlayer != "" && (v.ID == currentPlayer || v.Login == currentPlayer),
		}
	case Missing:
		return PlayerRender{
			Name:         UnknownPlayerName,
			BalanceLabel: formatMoney(0),
			Status:       UnknownPlayerStatus,
			Position:     p.Seat,
			Missing:      true,
		}
	}
	return PlayerRender{Name: UnknownPlayerName, BalanceLabel: formatMoney(0), Status: UnknownPlayerStatus, Missing: true}
}

func formatMoney(amount int64) string {
	return fmt.Sprintf("$%d", amount)
}

// View is everything an overlay frame draws, derived from State alone.
type View struct {
	Phase           state.Phase
	Players         []PlayerRender
	Community       []CardFace
	Pot             int64
	PotStack        chips.StackView
	MinBet          int64
	CurrentBet      int64
	Timer           TimerView
	BettingControls bool
	Selected        []int
	Chat            []ChatLine
}

func Render(s State) View {
	g := s.Game
	players := make([]PlayerRender, 0, len(g.Players))
	for _, p := range g.Players {
		players = append(players, renderPlayer(p, g.CurrentPlayer))
	}
	return View{
		Phase:           g.Phase,
		Players:         players,
		Community:       RenderCards(g.CommunityCards, true),
		Pot:             g.Pot,
		PotStack:        chips.Stack(g.Pot, chips.DefaultLayout),
		MinBet:          g.MinBet,
		CurrentBet:      g.CurrentBet,
		Timer:           RenderTimer(g.Countdown, g.Phase),
		BettingControls: BettingControlsVisible(g.CurrentPlayer, s.UserLogin, g.Phase),
		Selected:        s.Local.Selected,
		Chat:            s.Chat,
	}
}
