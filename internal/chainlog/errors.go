package chainlog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence failed")
)

// ValidationError rejects an append before anything is changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PersistenceError reports a failed read or write of the backing store.
type PersistenceError struct {
	Op  string // load or save
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// validate checks the input of an append.
func validate(text, amount string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "text", Reason: "must not be blank"}
	}
	if strings.Contains(text, fieldSep) {
		return &ValidationError{Field: "text", Reason: "must not contain '|'"}
	}
	if strings.TrimSpace(amount) == "" {
		return &ValidationError{Field: "amount", Reason: "must not be blank"}
	}
	for i := 0; i < len(amount); i++ {
		if amount[i] < '0' || amount[i] > '9' {
			return &ValidationError{Field: "amount", Reason: "must contain digits only"}
		}
	}
	return nil
}
