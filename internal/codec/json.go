package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"expensetracker/internal/core"
)

// DecodeJSON reads exactly one JSON object from r. Numbers keep their
// literal form as json.Number.
func DecodeJSON(r io.Reader) (core.Expense, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: null is not an expense", ErrMalformedPayload)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after expense", ErrMalformedPayload)
	}
	return core.Expense(record), nil
}

// EncodeJSON writes expenses as a JSON array; nil encodes as [].
func EncodeJSON(w io.Writer, expenses []core.Expense) error {
	if expenses == nil {
		expenses = []core.Expense{}
	}
	return WriteJSON(w, expenses)
}

// WriteJSON encodes any value; used for the fixed-shape bodies the HTTP
// layer emits regardless of negotiation.
func WriteJSON(w io.Writer, v any) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
