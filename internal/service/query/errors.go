package query

import "errors"

var (
	ErrShowNotFound = errors.New("show not found")
	ErrNoSeats      = errors.New("no seats requested")
)
