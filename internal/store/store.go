// Package store provides typed, business-scoped access to the knowledge
// base: equipment, problems, solutions, symptoms and issues. Operations are
// package functions over *gorm.DB, so callers can pass a transaction handle
// where atomicity matters.
package store

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound indicates a referenced record does not resolve. Callers
// surface it without retrying.
var ErrNotFound = errors.New("store: not found")

// ErrValidation indicates a malformed write, rejected before any state
// mutation.
var ErrValidation = errors.New("store: validation failure")

// notFound converts gorm's record-not-found into the package sentinel,
// passing other errors through.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
