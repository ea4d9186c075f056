package chips

import (
	"errors"
	"fmt"
)

var ErrNegativeAmount = errors.New("chip amount must be non-negative")

type Denomination struct {
	Value int64
	Color string
	Label string
}

// Denominations is ordered strictly high to low and ends in a base unit
// of 1, so the greedy walk always consumes the whole amount.
var Denominations = []Denomination{
	{Value: 1000, Color: "#f1c40f", Label: "1K"},
	{Value: 500, Color: "#8e44ad", Label: "500"},
	{Value: 100, Color: "#2c3e50", Label: "100"},
	{Value: 25, Color: "#27ae60", Label: "25"},
	{Value: 5, Color: "#c0392b", Label: "5"},
	{Value: 1, Color: "#ecf0f1", Label: "1"},
}

// Count is how many chips of one denomination make up part of an amount.
type Count struct {
	Denomination
	Count int64
}

// AmountToChips decomposes amount greedily from the highest denomination
// down. Denominations that are not used are omitted.
func AmountToChips(amount int64) ([]Count, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeAmount, amount)
	}

	var counts []Count
	remaining := amount
	for _, d := range Denominations {
		n := remaining / d.Value
		if n == 0 {
			continue
		}
		counts = append(counts, Count{Denomination: d, Count: n})
		remaining -= n * d.Value
	}
	return counts, nil
}

// Total sums a decomposition back into an amount.
func Total(counts []Count) int64 {
	var total int64
	for _, c := range counts {
		total += c.Value * c.Count
	}
	return total
}
