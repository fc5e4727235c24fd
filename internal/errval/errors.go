package errval

import (
	"errors"
	"fmt"
)

var (
	ErrInternal        = errors.New("internal server error")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrAlreadyAssigned = errors.New("task is already assigned")
	ErrUnavailable     = errors.New("technician is not available")
	ErrThrottled       = errors.New("throttled")
)

// InvalidStateError names the status that blocked the operation so a retrying
// caller can decide whether to proceed.
type InvalidStateError struct {
	Current   string
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s task with status %s", e.Operation, e.Current)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// AlreadyAssignedError carries the username of the technician who holds the
// task.
type AlreadyAssignedError struct {
	Assignee string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("task is already assigned to technician: %s", e.Assignee)
}

func (e *AlreadyAssignedError) Unwrap() error { return ErrAlreadyAssigned }

// ThrottledError carries the remaining wait in whole seconds.
type ThrottledError struct {
	RetryAfterSeconds int64
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("location update throttled, please wait %d seconds", e.RetryAfterSeconds)
}

func (e *ThrottledError) Unwrap() error { return ErrThrottled }
