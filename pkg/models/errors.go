package models

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned when input breaks a content rule
	ErrInvalid = errors.New("invalid input")
)
