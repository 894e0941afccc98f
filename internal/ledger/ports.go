// Package ledger declares the contract between the HTTP front end and
// whatever records expenses, plus the storage port the ledger service
// persists through.
package ledger

//go:generate mockgen -source=ports.go -destination=../mock/ledger_mock.go -package=mock

import (
	"context"
	"errors"

	"expensetracker/internal/core"
)

// ErrRejected marks a storage failure caused by the expense itself rather
// than by the store. Its message is safe to show to the client.
var ErrRejected = errors.New("expense rejected")

type (
	// Ledger records expenses and lists them by date. A refused expense is
	// reported through RecordResult; the error return is reserved for
	// infrastructure failures.
	Ledger interface {
		Record(ctx context.Context, expense core.Expense) (core.RecordResult, error)
		ExpensesOn(ctx context.Context, date string) ([]core.Expense, error)
	}

	// Store persists expenses keyed by their date.
	Store interface {
		Save(ctx context.Context, date string, expense core.Expense) (int64, error)
		ListByDate(ctx context.Context, date string) ([]core.Expense, error)
		Close() error
	}

	// Pinger is implemented by ledgers and stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
