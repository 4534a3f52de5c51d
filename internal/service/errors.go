package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrValidation marks missing or invalid input; nothing was written
	ErrValidation = errors.New("invalid input")

	// ErrNotFound covers both absent entities and entities the caller may not
	// access, so existence is not leaked
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a datastore failure
	ErrPersistence = errors.New("persistence failure")
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// lookupError maps a repository lookup error to ErrNotFound or ErrPersistence
func lookupError(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return persistenceError(op, err)
}
