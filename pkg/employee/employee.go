// Package employee stores and retrieves the employee records of the
// directory in a relational database
package employee

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals there is no employee with the requested ID
	ErrNotFound = errors.New("employee not found")
	// ErrAlreadyExists signals an employee with the same ID is stored already
	ErrAlreadyExists = errors.New("employee already exists")
)

// Employee is a single record of the directory. All fields are required.
type Employee struct {
	ID           string
	FirstName    string
	LastName     string
	PrimarySkill string
	Location     string
}

// MissingFieldError is returned by Validate for empty required fields
type MissingFieldError struct {
	Field string
}

func (m MissingFieldError) Error() string {
	return fmt.Sprintf("required field %s is missing", m.Field)
}

// FullName joins first and last name
func (e Employee) FullName() string {
	return strings.TrimSpace(strings.Join([]string{e.FirstName, e.LastName}, " "))
}

// Validate checks all required fields are set
func (e Employee) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"emp_id", e.ID},
		{"first_name", e.FirstName},
		{"last_name", e.LastName},
		{"primary_skill", e.PrimarySkill},
		{"location", e.Location},
	} {
		if strings.TrimSpace(f.value) == "" {
			return MissingFieldError{Field: f.name}
		}
	}

	return nil
}
