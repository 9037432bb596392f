package employee

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEmployee = Employee{
	ID:           "42",
	FirstName:    "Jane",
	LastName:     "Doe",
	PrimarySkill: "Go",
	Location:     "Toronto",
}

func newMockStore(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	s, err := NewStore(db, driver)
	require.NoError(t, err)

	return s, mock
}

func TestNewStoreUnknownDriver(t *testing.T) {
	_, err := NewStore(nil, "oracle")
	require.Error(t, err)
}

func TestAdd(t *testing.T) {
	tests := []struct {
		driver string
		query  string
	}{
		{"mysql", "INSERT INTO employee (emp_id, first_name, last_name, primary_skill, location) VALUES (?, ?, ?, ?, ?)"},
		{"postgres", "INSERT INTO employee (emp_id, first_name, last_name, primary_skill, location) VALUES ($1, $2, $3, $4, $5)"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			s, mock := newMockStore(t, tt.driver)

			mock.ExpectExec(regexp.QuoteMeta(tt.query)).
				WithArgs("42", "Jane", "Doe", "Go", "Toronto").
				WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, s.Add(context.Background(), testEmployee))
		})
	}
}

func TestAddValidates(t *testing.T) {
	s, _ := newMockStore(t, "mysql")

	e := testEmployee
	e.Location = "  "

	err := s.Add(context.Background(), e)
	var mfe MissingFieldError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, "location", mfe.Field)
}

func TestAddDuplicate(t *testing.T) {
	tests := []struct {
		driver string
		err    error
	}{
		{"mysql", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '42' for key 'PRIMARY'"}},
		{"postgres", &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}},
		{"ramsql", errors.New("primary key violation")},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			s, mock := newMockStore(t, tt.driver)
			mock.ExpectExec("INSERT INTO employee").WillReturnError(tt.err)

			err := s.Add(context.Background(), testEmployee)
			assert.ErrorIs(t, err, ErrAlreadyExists)
		})
	}
}

func TestAddDatabaseError(t *testing.T) {
	s, mock := newMockStore(t, "mysql")
	mock.ExpectExec("INSERT INTO employee").WillReturnError(errors.New("connection refused"))

	err := s.Add(context.Background(), testEmployee)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyExists)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGet(t *testing.T) {
	s, mock := newMockStore(t, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT emp_id, first_name, last_name, primary_skill, location FROM employee WHERE emp_id = ?")).
		WithArgs("42").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("42", "Jane", "Doe", "Go", "Toronto"))

	got, err := s.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, testEmployee, got)
}

func TestGetNotFound(t *testing.T) {
	s, mock := newMockStore(t, "postgres")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE emp_id = $1")).
		WithArgs("7").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := s.Get(context.Background(), "7")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetNullColumn(t *testing.T) {
	s, mock := newMockStore(t, "mysql")

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("42", "Jane", nil, "Go", "Toronto"))

	_, err := s.Get(context.Background(), "42")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "last_name")
}

func TestGetQueryError(t *testing.T) {
	s, mock := newMockStore(t, "mysql")
	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrConnDone)

	_, err := s.Get(context.Background(), "42")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestRoundTripInMemory(t *testing.T) {
	db, err := sql.Open("ramsql", "TestRoundTripInMemory")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewStore(db, "ramsql")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Add(ctx, testEmployee))
	assert.ErrorIs(t, s.Add(ctx, testEmployee), ErrAlreadyExists)

	got, err := s.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, testEmployee, got)

	_, err = s.Get(ctx, "43")
	assert.ErrorIs(t, err, ErrNotFound)
}
