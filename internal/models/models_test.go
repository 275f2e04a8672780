package models

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save 10\t"))
	assert.Equal(t, "", NormalizeCode(" \n "))
}

func TestToCartLines(t *testing.T) {
	lines, err := ToCartLines([]CartItem{{ProductID: "p1", Qty: 3, Price: 12.5}, {ProductID: "p2", Qty: 1, Price: 19.99}})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.True(t, lines[0].Subtotal().Equal(decimal.RequireFromString("37.5")))
	assert.True(t, lines[1].UnitPrice.Equal(decimal.RequireFromString("19.99")))

	bad := []CartItem{
		{ProductID: "", Qty: 1, Price: 1},
		{ProductID: "p", Qty: 0, Price: 1},
		{ProductID: "p", Qty: 1.5, Price: 1},
		{ProductID: "p", Qty: math.NaN(), Price: 1},
		{ProductID: "p", Qty: 1, Price: -0.01},
		{ProductID: "p", Qty: 1, Price: math.Inf(1)},
		{ProductID: "p", Qty: 1, Price: 0.125},
	}
	for _, it := range bad {
		_, err := ToCartLines([]CartItem{it})
		assert.True(t, IsValidation(err), "%+v", it)
	}
}

func TestNewDiscountSpec(t *testing.T) {
	spec, err := NewDiscountSpec(DiscountPercentage, decimal.NewFromInt(15))
	require.NoError(t, err)
	assert.Equal(t, DiscountPercentage, spec.Type())

	spec, err = NewDiscountSpec(DiscountBogo, decimal.NewFromInt(99))
	require.NoError(t, err)
	assert.True(t, spec.Value().IsZero(), "value is ignored for bogo")

	_, err = NewDiscountSpec(DiscountPercentage, decimal.NewFromInt(101))
	assert.True(t, IsValidation(err))
	_, err = NewDiscountSpec(DiscountFixed, decimal.NewFromInt(-1))
	assert.True(t, IsValidation(err))
	_, err = NewDiscountSpec("cashback", decimal.Zero)
	assert.True(t, IsValidation(err))
}

func TestWindowStatus(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	assert.Equal(t, StatusScheduled, WindowStatus(start.Add(-time.Second), start, end))
	assert.Equal(t, StatusActive, WindowStatus(start, start, end))
	assert.Equal(t, StatusActive, WindowStatus(end, start, end))
	assert.Equal(t, StatusEnded, WindowStatus(end.Add(time.Second), start, end))
}

func TestPromotionScopeAndCap(t *testing.T) {
	p := &Promotion{ProductIDs: []string{"tea"}, MaxRedemptions: 2, Redemptions: 2}
	assert.True(t, p.AppliesTo("tea"))
	assert.False(t, p.AppliesTo("rice"))
	assert.True(t, p.CapReached())

	p = &Promotion{}
	assert.True(t, p.AppliesTo("anything"))
	assert.False(t, p.CapReached(), "zero cap is unlimited")
}
