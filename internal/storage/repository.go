// Package storage persists expenses in SQL databases. One Repository type
// serves both SQLite and PostgreSQL; the dialect only changes placeholders
// and how driver errors are classified.
package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const tableExpenses = "expenses"

// Repository implements ledger.Store over database/sql.
type Repository struct {
	db       *sql.DB
	dialect  Dialect
	builder  sq.StatementBuilderType
	classify func(error) error
}

// NewRepository wraps an open database. It does not run migrations.
func NewRepository(db *sql.DB, dialect Dialect) (*Repository, error) {
	r := &Repository{db: db, dialect: dialect}
	switch dialect {
	case DialectSQLite:
		r.builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
		r.classify = classifySQLiteError
	case DialectPostgres:
		r.builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
		r.classify = classifyPostgresError
	default:
		return nil, fmt.Errorf("unsupported SQL dialect %q", dialect)
	}
	return r, nil
}

// Save inserts e under date and returns the generated id.
func (r *Repository) Save(ctx context.Context, date string, e core.Expense) (int64, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrRejected, err)
	}

	query, args, err := r.builder.
		Insert(tableExpenses).
		Columns("expense_date", "payload").
		Values(date, string(payload)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, r.classify(fmt.Errorf("insert expense: %w", err))
	}

	log.FromContext(ctx).DebugContext(ctx, "Expense saved",
		log.FieldBackend, string(r.dialect),
		log.FieldExpenseID, id,
		log.FieldExpenseDate, date)
	return id, nil
}

// ListByDate returns the expenses stored under date ordered by id, each
// with its id set.
func (r *Repository) ListByDate(ctx context.Context, date string) ([]core.Expense, error) {
	query, args, err := r.builder.
		Select("id", "payload").
		From(tableExpenses).
		Where(sq.Eq{"expense_date": date}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		var (
			id      int64
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e, err := decodePayload(payload)
		if err != nil {
			return nil, fmt.Errorf("decode expense %d: %w", id, err)
		}
		out = append(out, e.With(core.FieldID, id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func decodePayload(b []byte) (core.Expense, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var e core.Expense
	if err := dec.Decode(&e); err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.New("null payload")
	}
	return e, nil
}

var (
	_ ledger.Store  = (*Repository)(nil)
	_ ledger.Pinger = (*Repository)(nil)
)
