package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandleManagerFirstTickStartsBucket(t *testing.T) {
	cm := newCandleManager("1m")
	cm.Update(100, time.Unix(0, 0))
	assert.False(t, cm.IsCandleReady())
}

func TestCandleManagerFinalizesOnElapsedBucket(t *testing.T) {
	cm := newCandleManager("1m")
	start := time.Unix(0, 0)
	cm.Update(100, start)
	cm.Update(105, start.Add(30*time.Second))
	cm.Update(95, start.Add(61*time.Second))

	require.True(t, cm.IsCandleReady())
	completed := cm.GetCompleted(1)
	require.Len(t, completed, 1)
	assert.Equal(t, 100.0, completed[0].Open)
	assert.Equal(t, 105.0, completed[0].High)
	assert.Equal(t, 100.0, completed[0].Low)
	assert.Equal(t, 105.0, completed[0].Close)
}

func TestCandleManagerBucketAdvancesFromLastTickNotWallClock(t *testing.T) {
	// Regression for spec.md §4.2's documented drift: the next bucket
	// boundary is anchored to the timestamp of the tick that finalized
	// the previous candle, not to a wall-clock-aligned boundary.
	cm := newCandleManager("1m")
	start := time.Unix(0, 0)
	cm.Update(100, start)
	cm.Update(100, start.Add(65*time.Second)) // finalizes candle 1, new bucket starts at +65s
	cm.Update(100, start.Add(120*time.Second)) // only 55s into bucket 2 — should NOT finalize yet

	assert.Len(t, cm.GetCompleted(10), 1)
}

func TestCandleManagerRingCapped(t *testing.T) {
	cm := newCandleManager("1m")
	start := time.Unix(0, 0)
	cm.Update(100, start)
	for i := 1; i <= candleRingCap+10; i++ {
		cm.Update(100, start.Add(time.Duration(i)*61*time.Second))
	}
	assert.LessOrEqual(t, len(cm.GetCompleted(candleRingCap+50)), candleRingCap)
}
