package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expensetracker/internal/ledger"
)

// classifyPostgresError marks errors caused by the submitted expense as
// ledger.ErrRejected. Everything else passes through unchanged.
func classifyPostgresError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.CheckViolation,
		pgerrcode.NotNullViolation:
		return fmt.Errorf("%w: %s", ledger.ErrRejected, constraintText(pgErr.ConstraintName, pgErr.ColumnName))
	case pgerrcode.StringDataRightTruncationDataException,
		pgerrcode.InvalidTextRepresentation,
		pgerrcode.UntranslatableCharacter,
		pgerrcode.CharacterNotInRepertoire:
		return fmt.Errorf("%w: %s", ledger.ErrRejected, pgErr.Message)
	}
	return err
}

// classifySQLiteError does the same for modernc sqlite result codes.
func classifySQLiteError(err error) error {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return err
	}
	// extended codes carry the primary code in the low byte
	switch sqErr.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return fmt.Errorf("%w: constraint violated", ledger.ErrRejected)
	case sqlite3.SQLITE_TOOBIG:
		return fmt.Errorf("%w: expense too large", ledger.ErrRejected)
	}
	return err
}

func constraintText(constraint, column string) string {
	switch {
	case constraint != "":
		return "constraint " + constraint + " violated"
	case column != "":
		return "column " + column + " is required"
	default:
		return "constraint violated"
	}
}
