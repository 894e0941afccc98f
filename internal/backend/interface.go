// Package backend assembles the ledger the HTTP server talks to from the
// configured store, broker and cache.
package backend

import "expensetracker/internal/ledger"

// Backend is a ready ledger that can report readiness and be shut down.
type Backend interface {
	ledger.Ledger
	ledger.Pinger
	Close() error
}
