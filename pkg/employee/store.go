package employee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	tableName = "employee"

	mysqlErrDuplicateEntry = 1062
	pqErrUniqueViolation   = "23505"
)

// ramsql reports constraint violations as plain errors only
var ramsqlDuplicateMessages = []string{"primary key violation", "unicity"}

var columns = []string{"emp_id", "first_name", "last_name", "primary_skill", "location"}

// Store reads and writes employees. Every operation acquires its own
// connection from the pool and releases it before returning.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// NewStore creates a Store on top of the given pool. The driver
// determines the SQL dialect spoken.
func NewStore(db *sql.DB, driver string) (*Store, error) {
	d, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, dialect: d}, nil
}

// Add inserts a new employee
func (s *Store) Add(ctx context.Context, e Employee) error {
	if err := e.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s);",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(s.dialect.placeholders(len(columns)), ", "),
	)

	return s.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, query, e.ID, e.FirstName, e.LastName, e.PrimarySkill, e.Location); err != nil {
			if isDuplicate(err) {
				return fmt.Errorf("%w: %s", ErrAlreadyExists, e.ID)
			}
			return pkgerrors.Wrap(err, "inserting employee")
		}

		logrus.WithField("emp_id", e.ID).Debug("employee added")
		return nil
	})
}

// Get fetches the employee with the given ID. ErrNotFound is returned if
// there is none.
func (s *Store) Get(ctx context.Context, id string) (Employee, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE emp_id = %s;",
		strings.Join(columns, ", "),
		tableName,
		s.dialect.placeholders(1)[0],
	)

	var out Employee
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		var fields [5]sql.NullString
		err := conn.QueryRowContext(ctx, query, id).Scan(&fields[0], &fields[1], &fields[2], &fields[3], &fields[4])
		switch {
		case err == nil:
			// Found it

		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("%w: %s", ErrNotFound, id)

		default:
			return pkgerrors.Wrap(err, "querying employee")
		}

		for i, f := range fields {
			if !f.Valid {
				return fmt.Errorf("employee %s: column %s is NULL", id, columns[i])
			}
		}

		out = Employee{
			ID:           fields[0].String,
			FirstName:    fields[1].String,
			LastName:     fields[2].String,
			PrimarySkill: fields[3].String,
			Location:     fields[4].String,
		}
		return nil
	})

	return out, err
}

// Migrate creates the employee table if it does not exist yet
func (s *Store) Migrate(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, s.dialect.schema())
		return pkgerrors.Wrap(err, "creating employee table")
	})
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return pkgerrors.Wrap(s.db.PingContext(ctx), "pinging database")
}

func (s *Store) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "acquiring database connection")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Error("releasing database connection")
		}
	}()

	return fn(conn)
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDuplicateEntry
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqErrUniqueViolation
	}

	for _, msg := range ramsqlDuplicateMessages {
		if strings.Contains(err.Error(), msg) {
			return true
		}
	}

	return false
}
