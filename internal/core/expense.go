package core

type (
	// Expense is an opaque record submitted by a client. The HTTP layer never
	// looks inside it; shape checks belong to the ledger.
	Expense map[string]any

	// RecordResult is what the ledger hands back for a single submission.
	// ExpenseID is meaningful only when Success is true, ErrorMessage only
	// when it is false.
	RecordResult struct {
		Success      bool
		ExpenseID    int64
		ErrorMessage string
	}
)

// Well-known expense fields understood by the ledger.
const (
	FieldID     = "id"
	FieldPayee  = "payee"
	FieldAmount = "amount"
	FieldDate   = "date"
)

// Recorded builds a successful RecordResult.
func Recorded(id int64) RecordResult {
	return RecordResult{Success: true, ExpenseID: id}
}

// Rejected builds a failed RecordResult carrying the reason.
func Rejected(message string) RecordResult {
	return RecordResult{Success: false, ErrorMessage: message}
}

// StringField returns the value under name when it is a string.
func (e Expense) StringField(name string) string {
	if s, ok := e[name].(string); ok {
		return s
	}
	return ""
}

// Clone returns a deep copy, so cached or stored records cannot be mutated
// through a returned value.
func (e Expense) Clone() Expense {
	if e == nil {
		return nil
	}
	out := make(Expense, len(e))
	for k, v := range e {
		out[k] = cloneValue(v)
	}
	return out
}

// With returns a copy of e with name set to value.
func (e Expense) With(name string, value any) Expense {
	out := e.Clone()
	if out == nil {
		out = Expense{}
	}
	out[name] = value
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case Expense:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// CloneAll deep-copies a slice of expenses. A nil input yields an empty,
// non-nil slice so encoders emit [] rather than null.
func CloneAll(in []Expense) []Expense {
	out := make([]Expense, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
