package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
)

func newMockRepo(t *testing.T, dialect Dialect) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db, dialect)
	require.NoError(t, err)
	return repo, mock
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code, ConstraintName: "expenses_expense_date_check"}
}

var (
	insertQuery = regexp.QuoteMeta("INSERT INTO expenses (expense_date,payload) VALUES ($1,$2) RETURNING id")
	selectQuery = regexp.QuoteMeta("SELECT id, payload FROM expenses WHERE expense_date = $1 ORDER BY id")
)

func TestNewRepositoryRejectsUnknownDialect(t *testing.T) {
	_, err := NewRepository(&sql.DB{}, Dialect("mysql"))
	assert.Error(t, err)
}

func TestSave_Postgres(t *testing.T) {
	repo, mock := newMockRepo(t, DialectPostgres)
	e := core.Expense{"payee": "Starbucks", "amount": json.Number("5.75"), "date": "2017-06-10"}

	mock.ExpectQuery(insertQuery).
		WithArgs("2017-06-10", `{"amount":5.75,"date":"2017-06-10","payee":"Starbucks"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(417))

	id, err := repo.Save(context.Background(), "2017-06-10", e)
	require.NoError(t, err)
	assert.Equal(t, int64(417), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_PostgresConstraintIsRejection(t *testing.T) {
	tests := []struct {
		code     string
		rejected bool
	}{
		{pgerrcode.CheckViolation, true},
		{pgerrcode.NotNullViolation, true},
		{pgerrcode.StringDataRightTruncationDataException, true},
		{pgerrcode.ConnectionFailure, false},
		{pgerrcode.UndefinedTable, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			repo, mock := newMockRepo(t, DialectPostgres)
			mock.ExpectQuery(insertQuery).WillReturnError(pgError(tt.code))

			_, err := repo.Save(context.Background(), "2017-06-10", core.Expense{"payee": "x"})
			require.Error(t, err)
			assert.Equal(t, tt.rejected, errors.Is(err, ledger.ErrRejected), err.Error())
		})
	}
}

func TestSave_UnencodableExpense(t *testing.T) {
	repo, _ := newMockRepo(t, DialectPostgres)
	_, err := repo.Save(context.Background(), "2017-06-10", core.Expense{"ch": make(chan int)})
	assert.ErrorIs(t, err, ledger.ErrRejected)
}

func TestListByDate_Postgres(t *testing.T) {
	repo, mock := newMockRepo(t, DialectPostgres)

	mock.ExpectQuery(selectQuery).
		WithArgs("2017-06-10").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}).
			AddRow(1, []byte(`{"payee":"Starbucks","amount":5.75}`)).
			AddRow(2, []byte(`{"payee":"Zoo","amount":15.25}`)))

	got, err := repo.ListByDate(context.Background(), "2017-06-10")
	require.NoError(t, err)
	assert.Equal(t, []core.Expense{
		{"id": int64(1), "payee": "Starbucks", "amount": json.Number("5.75")},
		{"id": int64(2), "payee": "Zoo", "amount": json.Number("15.25")},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByDate_Empty(t *testing.T) {
	repo, mock := newMockRepo(t, DialectPostgres)
	mock.ExpectQuery(selectQuery).WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}))

	got, err := repo.ListByDate(context.Background(), "2017-06-12")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListByDate_Errors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		repo, mock := newMockRepo(t, DialectPostgres)
		mock.ExpectQuery(selectQuery).WillReturnError(errors.New("connection reset"))
		_, err := repo.ListByDate(context.Background(), "2017-06-10")
		assert.ErrorContains(t, err, "connection reset")
	})
	t.Run("corrupt payload", func(t *testing.T) {
		repo, mock := newMockRepo(t, DialectPostgres)
		mock.ExpectQuery(selectQuery).
			WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}).AddRow(1, []byte(`null`)))
		_, err := repo.ListByDate(context.Background(), "2017-06-10")
		assert.ErrorContains(t, err, "decode expense 1")
	})
}

func TestSQLiteDialectUsesQuestionPlaceholders(t *testing.T) {
	repo, mock := newMockRepo(t, DialectSQLite)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, payload FROM expenses WHERE expense_date = ? ORDER BY id")).
		WithArgs("2017-06-10").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}))

	_, err := repo.ListByDate(context.Background(), "2017-06-10")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Ping(ctx))

	for _, e := range []core.Expense{
		{"payee": "Starbucks", "amount": json.Number("5.75"), "date": "2017-06-10"},
		{"payee": "Zoo", "amount": json.Number("15.25"), "date": "2017-06-10"},
		{"payee": "Tickets", "amount": json.Number("100"), "date": "2017-06-11"},
	} {
		_, err := repo.Save(ctx, e.StringField(core.FieldDate), e)
		require.NoError(t, err)
	}

	got, err := repo.ListByDate(ctx, "2017-06-10")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Starbucks", got[0]["payee"])
	assert.Equal(t, json.Number("5.75"), got[0]["amount"])
	assert.Equal(t, int64(1), got[0][core.FieldID])
	assert.Equal(t, int64(2), got[1][core.FieldID])

	_, err = repo.Save(ctx, "not-a-date", core.Expense{"payee": "x"})
	assert.ErrorIs(t, err, ledger.ErrRejected)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	require.NoError(t, RunMigrations(DialectSQLite, path))
	require.NoError(t, RunMigrations(DialectSQLite, path))
	assert.Error(t, RunMigrations(Dialect("oracle"), path))
}
