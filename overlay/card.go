package overlay

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadCard = errors.New("unparseable card token")

const (
	CardBackLabel    = "🂠"
	CardInvalidLabel = "??"
)

var suitGlyphs = map[string]string{
	"H": "♥", "D": "♦", "C": "♣", "S": "♠",
	"♥": "♥", "♦": "♦", "♣": "♣", "♠": "♠",
}

var rankLabels = map[string]string{
	"A": "A", "K": "K", "Q": "Q", "J": "J", "T": "10",
	"9": "9", "8": "8", "7": "7", "6": "6", "5": "5", "4": "4", "3": "3", "2": "2",
}

// Card is a parsed rank+suit token such as "AH" or "TD".
type Card struct {
	Token string
	Rank  string
	Suit  string
}

// ParseCard splits token into rank (first character) and suit (the
// remainder). A leading "10" is read as rank T.
func ParseCard(token string) (Card, error) {
	t := strings.TrimSpace(token)
	if strings.HasPrefix(t, "10") {
		t = "T" + t[2:]
	}
	if len(t) < 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrBadCard, token)
	}

	rank := strings.ToUpper(t[:1])
	suit := t[1:]
	if len(suit) == 1 {
		suit = strings.ToUpper(suit)
	}
	if _, ok := rankLabels[rank]; !ok {
		return Card{}, fmt.Errorf("%w: rank %q in %q", ErrBadCard, rank, token)
	}
	if _, ok := suitGlyphs[suit]; !ok {
		return Card{}, fmt.Errorf("%w: suit %q in %q", ErrBadCard, suit, token)
	}
	return Card{Token: token, Rank: rank, Suit: suit}, nil
}

func (c Card) String() string {
	return rankLabels[c.Rank] + suitGlyphs[c.Suit]
}

// Red reports whether the card is drawn in red.
func (c Card) Red() bool {
	g := suitGlyphs[c.Suit]
	return g == "♥" || g == "♦"
}

// CardFace is one rendered card slot.
type CardFace struct {
	Token   string
	Label   string
	Back    bool
	Invalid bool
	Red     bool
}

// RenderCard draws token face up or as a card-back. Tokens that do not
// parse become a visible placeholder instead of failing the render.
func RenderCard(token string, revealed bool) CardFace {
	if !revealed {
		return CardFace{Token: token, Label: CardBackLabel, Back: true}
	}
	c, err := ParseCard(token)
	if err != nil {
		return CardFace{Token: token, Label: CardInvalidLabel, Invalid: true}
	}
	return CardFace{Token: token, Label: c.String(), Red: c.Red()}
}

func RenderCards(tokens []string, revealed bool) []CardFace {
	faces := make([]CardFace, 0, len(tokens))
	for _, t := range tokens {
		faces = append(faces, RenderCard(t, revealed))
	}
	return faces
}
