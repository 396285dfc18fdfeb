package contracts

import (
	"errors"
	"fmt"
)

// Precondition sentinels. 비즈니스 거절(필터)과 달리 호출자 버그를 뜻함
var (
	ErrEmptyGrid       = errors.New("price grid is empty")
	ErrGridMismatch    = errors.New("leg pnl length does not match price grid")
	ErrDensityMismatch = errors.New("density length does not match price grid")
	ErrGridNotSorted   = errors.New("price grid must be strictly increasing")
	ErrGridNotUniform  = errors.New("price grid must be evenly spaced")
	ErrInvalidMaxLegs  = errors.New("max legs must be in [1, 4]")
	ErrInvalidBatch    = errors.New("malformed candidate batch")
	ErrLegIndex        = errors.New("leg index out of range")
)

// PreconditionError reports a violated input contract
type PreconditionError struct {
	Op  string
	Err error
	Msg string
}

func (e *PreconditionError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Msg)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Precondition builds a PreconditionError
func Precondition(op string, err error, format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{Op: op, Err: err, Msg: fmt.Sprintf(format, args...)}
}
