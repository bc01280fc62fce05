// FILE: errors.go
// Package main – Error taxonomy (spec.md §7).
//
// Fatal startup kinds (ConfigInvalid, CredentialMissing) are sentinel-
// wrapped errors checked with errors.Is/errors.As. The remaining kinds
// (GatewayTransient, OrderRejected, StoreUnavailable, Unexpected) are
// not raised as distinct types — per spec.md §7 they are recovered
// locally in the loop body, so they are expressed as "nil result, no
// mutation" return values the way every broker in the teacher repo
// already signals a transient failure (GetNowPrice returning an error,
// PlaceMarketQuote returning a nil *PlacedOrder).
package main

import "errors"

var (
	// ErrConfigInvalid is fatal at startup: missing bot, unparseable
	// config, or unsupported exchange (spec.md §7.1).
	ErrConfigInvalid = errors.New("config invalid")

	// ErrCredentialMissing is fatal at startup: no ACTIVE exchange
	// connection on file (spec.md §7.2).
	ErrCredentialMissing = errors.New("exchange credential missing")
)
