package employee

import (
	"fmt"
	"strconv"
)

// Dialect names the SQL flavor spoken with the database
type Dialect string

// Supported dialects, named after the database/sql driver used
const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectRamSQL   Dialect = "ramsql"
)

// ParseDialect maps a driver name onto its Dialect
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(driver); d {
	case DialectMySQL, DialectPostgres, DialectRamSQL:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (d Dialect) placeholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		if d == DialectMySQL {
			out[i] = "?"
			continue
		}
		out[i] = "$" + strconv.Itoa(i+1)
	}
	return out
}

func (d Dialect) schema() string {
	switch d {
	case DialectMySQL:
		return `CREATE TABLE IF NOT EXISTS employee (
			emp_id        VARCHAR(20) NOT NULL,
			first_name    VARCHAR(20) NOT NULL,
			last_name     VARCHAR(20) NOT NULL,
			primary_skill VARCHAR(20) NOT NULL,
			location      VARCHAR(20) NOT NULL,
			PRIMARY KEY (emp_id)
		);`

	case DialectPostgres:
		return `CREATE TABLE IF NOT EXISTS employee (
			emp_id        TEXT NOT NULL PRIMARY KEY,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL,
			primary_skill TEXT NOT NULL,
			location      TEXT NOT NULL
		);`

	default:
		// ramsql lives in memory only, the table never exists on startup
		return `CREATE TABLE employee (
			emp_id        TEXT PRIMARY KEY,
			first_name    TEXT,
			last_name     TEXT,
			primary_skill TEXT,
			location      TEXT
		);`
	}
}
