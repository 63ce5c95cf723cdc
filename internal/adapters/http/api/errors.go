package api

import "fmt"

// NewKind creates an error tagged with the failing operation.
func NewKind(op, kind string) error {
	return fmt.Errorf("%s: %s", op, kind)
}

// WrapKind wraps err with the failing operation and a short kind label.
func WrapKind(op, kind string, err error) error {
	return fmt.Errorf("%s: %s: %w", op, kind, err)
}

// Wrap wraps err with the failing operation.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
