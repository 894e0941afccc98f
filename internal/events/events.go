// Package events describes what the ledger announces after it records an
// expense, and the publisher port broker adapters implement.
package events

//go:generate mockgen -source=events.go -destination=../mock/publisher_mock.go -package=mock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"expensetracker/internal/core"
)

// TypeExpenseRecorded is the routing key and type tag of ExpenseRecorded.
const TypeExpenseRecorded = "expense.recorded"

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event ExpenseRecorded) error
	Close() error
}

// ExpenseRecorded is emitted once per successfully recorded expense.
type ExpenseRecorded struct {
	Type       string       `json:"type"`
	ExpenseID  int64        `json:"expense_id"`
	Date       string       `json:"date"`
	Expense    core.Expense `json:"expense"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func NewExpenseRecorded(id int64, date string, e core.Expense, at time.Time) ExpenseRecorded {
	return ExpenseRecorded{
		Type:       TypeExpenseRecorded,
		ExpenseID:  id,
		Date:       date,
		Expense:    e.Clone(),
		OccurredAt: at.UTC(),
	}
}

// Key partitions events; all events of one expense share it.
func (e ExpenseRecorded) Key() string {
	return strconv.FormatInt(e.ExpenseID, 10)
}

func (e ExpenseRecorded) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.Type, err)
	}
	return b, nil
}

// UnmarshalExpenseRecorded decodes an event body, keeping numbers in the
// expense as json.Number.
func UnmarshalExpenseRecorded(data []byte) (ExpenseRecorded, error) {
	var ev ExpenseRecorded
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&ev); err != nil {
		return ExpenseRecorded{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if ev.Type != TypeExpenseRecorded {
		return ExpenseRecorded{}, fmt.Errorf("unmarshal event: unexpected type %q", ev.Type)
	}
	return ev, nil
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, ExpenseRecorded) error { return nil }
func (Nop) Close() error                                   { return nil }
