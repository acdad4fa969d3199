package draft

import (
	"errors"
	"testing"

	"eventpos/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() domain.Catalog {
	return domain.NewCatalog([]domain.Button{
		{ID: 5, Name: "Beer", Policy: domain.PolicyFixedPrice, Price: decimal.RequireFromString("2.50")},
		{ID: 6, Name: "Cup deposit", Policy: domain.PolicyReturnable, Price: decimal.RequireFromString("2.00")},
		{ID: 7, Name: "Donation", Policy: domain.PolicyFreePrice, MaxPrice: decimal.RequireFromString("100")},
		{ID: 8, Name: "Weekend ticket", Policy: domain.PolicyFixedPrice, Price: decimal.RequireFromString("40")},
	})
}

func TestIncrementFixedPrice(t *testing.T) {
	catalog := testCatalog()
	set := SelectionSet{}

	set, err := set.Increment(5, catalog)
	require.NoError(t, err)
	set, err = set.Increment(5, catalog)
	require.NoError(t, err)

	line, ok := set.Get(5)
	require.True(t, ok)
	assert.Equal(t, FixedPrice{Quantity: 2}, line)

	payload := set.ToRequestPayload(nil)
	require.Len(t, payload.Buttons, 1)
	assert.Equal(t, 5, payload.Buttons[0].ButtonID)
	require.NotNil(t, payload.Buttons[0].Quantity)
	assert.Equal(t, 2, *payload.Buttons[0].Quantity)
	assert.Nil(t, payload.Buttons[0].Price)
}

func TestDecrementFixedPriceNeverBelowZero(t *testing.T) {
	catalog := testCatalog()
	set := SelectionSet{}
	set, _ = set.Increment(5, catalog)
	set, _ = set.Increment(5, catalog)

	for i := 0; i < 5; i++ {
		var err error
		set, err = set.Decrement(5, catalog)
		require.NoError(t, err)
		if line, ok := set.Get(5); ok {
			assert.Greater(t, line.(FixedPrice).Quantity, 0)
		}
	}

	_, ok := set.Get(5)
	assert.False(t, ok)
	assert.Equal(t, 0, set.Len())
}

func TestDecrementReturnableWithoutEntry(t *testing.T) {
	set, err := SelectionSet{}.Decrement(6, testCatalog())
	require.NoError(t, err)

	line, ok := set.Get(6)
	require.True(t, ok)
	assert.Equal(t, Returnable{Quantity: -1}, line)
}

func TestReturnableRemovedAtZero(t *testing.T) {
	catalog := testCatalog()
	set, _ := SelectionSet{}.Decrement(6, catalog)
	set, err := set.Increment(6, catalog)
	require.NoError(t, err)

	_, ok := set.Get(6)
	assert.False(t, ok)
}

func TestAdjustPriceConvertsMinorUnits(t *testing.T) {
	set, err := SelectionSet{}.AdjustPrice(7, Set(1500), testCatalog())
	require.NoError(t, err)

	line, ok := set.Get(7)
	require.True(t, ok)
	assert.True(t, line.(FreePrice).Price.Equal(decimal.RequireFromString("15.00")))

	payload := set.ToRequestPayload(&domain.CustomerTag{UID: 42})
	require.Len(t, payload.Buttons, 1)
	assert.Nil(t, payload.Buttons[0].Quantity)
	require.NotNil(t, payload.Buttons[0].Price)
	assert.Equal(t, uint64(42), payload.CustomerTagUID)
}

func TestAdjustPriceZeroRemovesEntry(t *testing.T) {
	catalog := testCatalog()
	set, _ := SelectionSet{}.AdjustPrice(7, Set(300), catalog)

	set, err := set.AdjustPrice(7, Set(0), catalog)
	require.NoError(t, err)
	_, ok := set.Get(7)
	assert.False(t, ok)

	set, err = set.AdjustPrice(7, Set(0), catalog)
	require.NoError(t, err)
	_, ok = set.Get(7)
	assert.False(t, ok)
}

func TestAdjustPriceAboveMaximum(t *testing.T) {
	_, err := SelectionSet{}.AdjustPrice(7, Set(20000), testCatalog())
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestPolicyViolationsLeaveSetUnchanged(t *testing.T) {
	catalog := testCatalog()
	set, _ := SelectionSet{}.Increment(5, catalog)

	tests := []struct {
		name string
		op   func(SelectionSet) (SelectionSet, error)
		want error
	}{
		{"increment free price", func(s SelectionSet) (SelectionSet, error) { return s.Increment(7, catalog) }, ErrInvalidOperation},
		{"decrement free price", func(s SelectionSet) (SelectionSet, error) { return s.Decrement(7, catalog) }, ErrInvalidOperation},
		{"price on fixed", func(s SelectionSet) (SelectionSet, error) { return s.AdjustPrice(5, Set(100), catalog) }, ErrInvalidOperation},
		{"unknown button", func(s SelectionSet) (SelectionSet, error) { return s.Increment(99, catalog) }, ErrUnknownButton},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := tt.op(set)
			assert.True(t, errors.Is(err, tt.want))
			assert.Equal(t, set.Entries(), next.Entries())
		})
	}
}

func TestMutationsDoNotShareState(t *testing.T) {
	catalog := testCatalog()
	first, _ := SelectionSet{}.Increment(5, catalog)
	second, _ := first.Increment(5, catalog)

	line, _ := first.Get(5)
	assert.Equal(t, FixedPrice{Quantity: 1}, line)
	line, _ = second.Get(5)
	assert.Equal(t, FixedPrice{Quantity: 2}, line)
}

func TestTrackableUnitsSkipsFreeAndReturnable(t *testing.T) {
	catalog := testCatalog()
	set, _ := SelectionSet{}.Increment(8, catalog)
	set, _ = set.Increment(8, catalog)
	set, _ = set.Increment(5, catalog)
	set, _ = set.Increment(6, catalog)
	set, _ = set.AdjustPrice(7, Set(500), catalog)

	assert.Equal(t, 3, set.TrackableUnits())
}

func TestTotalAtCatalogPrices(t *testing.T) {
	catalog := testCatalog()
	set, _ := SelectionSet{}.Increment(5, catalog)
	set, _ = set.Increment(5, catalog)
	set, _ = set.Decrement(6, catalog)
	set, _ = set.AdjustPrice(7, Set(150), catalog)

	assert.True(t, set.Total(catalog).Equal(decimal.RequireFromString("4.50")))
}
