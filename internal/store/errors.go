package store

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound      = errors.New("task not found")
	ErrAlreadyExists = errors.New("task already exists")
	ErrParse         = errors.New("malformed task file")
	ErrIO            = errors.New("task file i/o failed")
	ErrInvalidName   = errors.New("invalid task name")
	ErrMergeSources  = errors.New("merge needs at least two tasks")
	ErrNoTemplates   = errors.New("no templates available")
)

// Error describes a failed store operation on one file.
type Error struct {
	Op   string // list, load, save, delete, duplicate, merge, create
	Name string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Kind)
	if e.Name == "" {
		msg = fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error kind, so errors.Is(err, ErrNotFound) works on wrapped
// store errors.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opError(op, name string, kind, err error) *Error {
	return &Error{Op: op, Name: name, Kind: kind, Err: err}
}
