package store

import "fmt"

// ValidationError reports caller input that was rejected before any storage
// access took place.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// OperationError reports a storage failure during a ledger read or write.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// StartupError reports that the ledger could not be opened or initialized.
// It is fatal to process start.
type StartupError struct {
	Path string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("initializing ledger %s: %v", e.Path, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
