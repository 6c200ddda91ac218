package utils

import (
	"fmt"
	"strings"
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// DataContractError signals a broken upstream data contract: a required source
// table or column is missing, or a join produced zero rows. Always fatal.
type DataContractError struct {
	Table  string
	Column string
	Msg    string
}

func (e *DataContractError) Error() string {
	var b strings.Builder
	b.WriteString("data contract violation")
	if e.Table != "" {
		fmt.Fprintf(&b, ": table %q", e.Table)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

// InsufficientDataError signals that training cannot proceed: too few rows, or
// a target with no variance. Always fatal.
type InsufficientDataError struct {
	Rows   int
	Min    int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("insufficient training data: %s (%d rows)", e.Reason, e.Rows)
	}
	return fmt.Sprintf("insufficient training data: %d rows, need at least %d", e.Rows, e.Min)
}

// FeatureMismatchError signals that an inference-time feature vector does not
// carry the feature set selected at training time. Always fatal; inference must
// never silently fall back to a different feature ordering.
type FeatureMismatchError struct {
	Missing []string
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("feature vector missing selected features: %s", strings.Join(e.Missing, ", "))
}
