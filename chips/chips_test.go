package chips

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountToChips_SumsExactly(t *testing.T) {
	for amount := int64(0); amount <= 5000; amount++ {
		counts, err := AmountToChips(amount)
		require.NoError(t, err)
		require.Equal(t, amount, Total(counts), "amount %d", amount)
	}

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		amount := r.Int63n(1 << 40)
		counts, err := AmountToChips(amount)
		require.NoError(t, err)
		require.Equal(t, amount, Total(counts), "amount %d", amount)
	}
}

func TestAmountToChips_GreedyHighToLow(t *testing.T) {
	counts, err := AmountToChips(1631)
	require.NoError(t, err)

	want := []struct {
		value, count int64
	}{{1000, 1}, {500, 1}, {100, 1}, {25, 1}, {5, 1}, {1, 1}}
	require.Len(t, counts, len(want))
	for i, w := range want {
		assert.Equal(t, w.value, counts[i].Value)
		assert.Equal(t, w.count, counts[i].Count)
	}

	counts, err = AmountToChips(2050)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, int64(2), counts[0].Count)
	assert.Equal(t, int64(25), counts[1].Value)
	assert.Equal(t, int64(2), counts[1].Count)

	// no denomination between consecutive entries could be chosen instead
	for i := 0; i+1 < len(counts); i++ {
		assert.Greater(t, counts[i].Value, counts[i+1].Value)
	}
}

func TestAmountToChips_ZeroAndNegative(t *testing.T) {
	counts, err := AmountToChips(0)
	require.NoError(t, err)
	assert.Empty(t, counts)

	_, err = AmountToChips(-5)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestDenominationsStrictlyDecreasing(t *testing.T) {
	for i := 0; i+1 < len(Denominations); i++ {
		assert.Greater(t, Denominations[i].Value, Denominations[i+1].Value)
	}
	assert.Equal(t, int64(1), Denominations[len(Denominations)-1].Value)
}

func TestStack_Layout(t *testing.T) {
	view := Stack(1131, Layout{Spacing: 3})
	// 1131 = 1000 + 100 + 25 + 5 + 1
	require.Len(t, view.Chips, 5)
	assert.Equal(t, int64(1000), view.Chips[0].Value)
	for i, c := range view.Chips {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, i*3, c.OffsetY)
		if i > 0 {
			assert.Greater(t, c.OffsetY, view.Chips[i-1].OffsetY)
			assert.Less(t, c.ZIndex, view.Chips[i-1].ZIndex)
		}
	}
}

func TestStack_CapsVisibleChips(t *testing.T) {
	view := Stack(25000, Layout{Spacing: 4, MaxVisible: 10})
	assert.Len(t, view.Chips, 10)
	assert.Equal(t, int64(15), view.Hidden)
	assert.Equal(t, 1, view.Chips[len(view.Chips)-1].ZIndex)
}

func TestStack_NegativeAmountIsEmpty(t *testing.T) {
	view := Stack(-1, DefaultLayout)
	assert.Empty(t, view.Chips)
	assert.Zero(t, view.Hidden)
}
