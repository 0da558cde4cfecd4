package errors

import (
	"errors"
	"fmt"
)

// Common error types shared by the portal services
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")

	// Storage errors
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
