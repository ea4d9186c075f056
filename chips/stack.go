package chips

type Layout struct {
	// Spacing is the vertical offset in pixels between two chips.
	Spacing int
	// MaxVisible caps the chips drawn per stack; 0 means unlimited.
	MaxVisible int
}

var DefaultLayout = Layout{Spacing: 4, MaxVisible: 20}

type PlacedChip struct {
	Denomination
	Index   int
	OffsetY int
	ZIndex  int
}

type StackView struct {
	Amount int64
	Chips  []PlacedChip
	// Hidden counts chips beyond MaxVisible that are not drawn.
	Hidden int64
}

// Stack lays out the chips for amount bottom-up, highest denomination at
// the bottom. Each chip sits Spacing pixels above the previous one and
// below it in z-order.
func Stack(amount int64, layout Layout) StackView {
	view := StackView{Amount: amount}
	counts, err := AmountToChips(amount)
	if err != nil {
		return view
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}
	visible := total
	if layout.MaxVisible > 0 && visible > int64(layout.MaxVisible) {
		visible = int64(layout.MaxVisible)
	}
	view.Hidden = total - visible
	view.Chips = make([]PlacedChip, 0, visible)

	index := 0
	for _, c := range counts {
		for n := int64(0); n < c.Count && int64(index) < visible; n++ {
			view.Chips = append(view.Chips, PlacedChip{
				Denomination: c.Denomination,
				Index:        index,
				OffsetY:      index * layout.Spacing,
				ZIndex:       int(visible) - index,
			})
			index++
		}
	}
	return view
}
