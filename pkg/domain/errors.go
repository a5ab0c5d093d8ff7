package domain

import (
	"errors"
	"fmt"
)

// error kinds surfaced to callers, test with errors.Is
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// specific invalid input errors, all wrap ErrInvalidInput
var (
	ErrInvalidURL       = fmt.Errorf("%w: url must match ^https?://.+", ErrInvalidInput)
	ErrDuplicateKeyword = fmt.Errorf("%w: filter keyword already exists", ErrInvalidInput)
	ErrEmptyField       = fmt.Errorf("%w: required field is empty", ErrInvalidInput)
	ErrUnknownSort      = fmt.Errorf("%w: unknown sort key", ErrInvalidInput)
)
