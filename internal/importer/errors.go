package importer

import (
	"errors"
	"fmt"
)

var (
	ErrNoHandler  = errors.New("import handler not set")
	ErrMissingURL = errors.New("row has no url")
)

type InvalidURLError struct {
	Value string
	Err   error
}

func (e *InvalidURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid url %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("invalid url %q", e.Value)
}

func (e *InvalidURLError) Unwrap() error {
	return e.Err
}

type HandlerPanicError struct {
	Value interface{}
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("import handler panic: %v", e.Value)
}
