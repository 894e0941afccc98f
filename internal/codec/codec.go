package codec

import (
	"io"

	"expensetracker/internal/core"
)

// Decode reads one expense from r in format f.
func Decode(f Format, r io.Reader) (core.Expense, error) {
	switch f {
	case JSON:
		return DecodeJSON(r)
	case XML:
		return DecodeXML(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// EncodeList writes expenses to w in format f.
func EncodeList(f Format, w io.Writer, expenses []core.Expense) error {
	switch f {
	case JSON:
		return EncodeJSON(w, expenses)
	case XML:
		return EncodeXML(w, expenses)
	default:
		return ErrUnsupportedFormat
	}
}
