package csvimport

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrInvalidEncoding = errors.New("CSV file is not valid UTF-8")
	ErrMissingHeader   = errors.New("CSV file missing header row")
)

// RowError is a problem with one row of an import file.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("Row %d: %s %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}

// ErrorCollection gathers row errors up to a limit.
type ErrorCollection struct {
	errors    []RowError
	maxErrors int
	total     int
}

// NewErrorCollection creates a collection keeping at most maxErrors entries (0 for no limit).
func NewErrorCollection(maxErrors int) *ErrorCollection {
	return &ErrorCollection{maxErrors: maxErrors}
}

// Add records an error
func (ec *ErrorCollection) Add(err RowError) {
	ec.total++
	if ec.maxErrors == 0 || len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddMessage records a row-level error without a column
func (ec *ErrorCollection) AddMessage(row int, message string) {
	ec.Add(RowError{Row: row, Message: message})
}

func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

func (ec *ErrorCollection) HasErrors() bool {
	return ec.total > 0
}

// Total counts every error added, including dropped ones.
func (ec *ErrorCollection) Total() int {
	return ec.total
}

// IsTruncated reports whether errors were dropped because of the limit.
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.total > len(ec.errors)
}

// Messages renders each error as "Row N: ...".
func (ec *ErrorCollection) Messages() []string {
	out := make([]string, 0, len(ec.errors))
	for _, e := range ec.errors {
		out = append(out, e.Error())
	}
	return out
}
