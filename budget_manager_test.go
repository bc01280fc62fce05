package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testBudgetConfig() BudgetConfig {
	return BudgetConfig{
		AllocatedAmount: 1000,
		MaxPositionPct:  0.5,
		SizingLevels: []PositionSizingLevel{
			{ATRMultiplier: 3.0, BudgetPercentage: 0.08},
			{ATRMultiplier: 2.0, BudgetPercentage: 0.05},
			{ATRMultiplier: 1.0, BudgetPercentage: 0.03},
		},
	}
}

func TestBudgetManagerBudgetPctFallsThroughLevels(t *testing.T) {
	b := newBudgetManager(testBudgetConfig(), 1)
	assert.Equal(t, 0.08, b.budgetPct(3.5))
	assert.Equal(t, 0.05, b.budgetPct(2.2))
	assert.Equal(t, 0.03, b.budgetPct(1.0))
	assert.Equal(t, 0.03, b.budgetPct(0.2)) // below all levels -> default
}

func TestBudgetManagerVolatilityAdj(t *testing.T) {
	b := newBudgetManager(testBudgetConfig(), 1)
	assert.Equal(t, 0.7, b.volatilityAdj(3.5))
	assert.Equal(t, 0.85, b.volatilityAdj(2.5))
	assert.Equal(t, 1.0, b.volatilityAdj(0.5))
}

// TestBudgetManagerAllocateNoDoubleDivision locks in the documented
// non-bug behavior: ActualCost already divides PositionValue by leverage,
// and Reserve/Release are meant to be called with that same value — not
// divided again by the caller.
func TestBudgetManagerAllocateNoDoubleDivision(t *testing.T) {
	b := newBudgetManager(testBudgetConfig(), 5)

	qty, info := b.Allocate(100, 1.0, 0.5)
	// pct=0.03, volAdj=1.0 (atrPct<=2.0), value = 1000*0.03*5 = 150
	assert.InDelta(t, 150.0, info.PositionValue, 1e-9)
	assert.InDelta(t, 1.5, qty, 1e-9) // 150/100
	assert.InDelta(t, 30.0, info.ActualCost, 1e-9) // 150/5

	b.Reserve(info.ActualCost)
	assert.InDelta(t, 30.0, b.UsedBudget(), 1e-9)
	assert.InDelta(t, 970.0, b.RemainingBudget(), 1e-9)

	b.Release(info.ActualCost)
	assert.InDelta(t, 0.0, b.UsedBudget(), 1e-9)
}

func TestBudgetManagerReleaseFloorsAtZero(t *testing.T) {
	b := newBudgetManager(testBudgetConfig(), 1)
	b.Reserve(10)
	b.Release(50)
	assert.Equal(t, 0.0, b.UsedBudget())
}

func TestBudgetManagerCanOpenRejectsOverBudget(t *testing.T) {
	b := newBudgetManager(testBudgetConfig(), 1)
	ok, reason := b.CanOpen(2000)
	assert.False(t, ok)
	assert.Contains(t, reason, "insufficient budget")
}

func TestBudgetManagerCanOpenRejectsOverMaxPosition(t *testing.T) {
	b := newBudgetManager(testBudgetConfig(), 1)
	b.Reserve(600) // maxPositionPct=0.5 of 1000 = 500
	ok, reason := b.CanOpen(10)
	assert.False(t, ok)
	assert.Contains(t, reason, "max position size")
}

func TestBudgetManagerCanOpenAllows(t *testing.T) {
	b := newBudgetManager(testBudgetConfig(), 1)
	ok, reason := b.CanOpen(50)
	assert.True(t, ok)
	assert.Equal(t, "OK", reason)
}
