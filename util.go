// FILE: util.go
// Package main – Small numeric helpers shared across the sizing/rounding
// paths, in the style of trader.go's clamp/snapToStep helpers.
package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// newID mints a client-side identifier; GormStore.SavePosition uses it
// as the id of a position saved without one (the way broker_paper.go
// mints synthetic order ids).
func newID() string { return uuid.NewString() }

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if hi > 0 && x > hi {
		return hi
	}
	return x
}

// roundHalfAwayFromZero rounds to the nearest integer, ties away from zero.
func roundHalfAwayFromZero(x float64) float64 {
	if x >= 0 {
		return math.Floor(x + 0.5)
	}
	return math.Ceil(x - 0.5)
}

// roundToStepPrecision rounds v to the number of decimal places implied
// by step (e.g. step=0.001 -> 3 decimal places), matching the source's
// round_quantity precision derivation from stepSize's string form.
func roundToStepPrecision(v, step float64) float64 {
	s := strconv.FormatFloat(step, 'f', -1, 64)
	precision := 0
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		precision = len(s) - idx - 1
	}
	mult := math.Pow(10, float64(precision))
	return math.Round(v*mult) / mult
}
