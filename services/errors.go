package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced donation or item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyReviewed means the donation is no longer pending. It is benign:
	// whichever entry point loses the race gets this and must not re-apply
	// side effects.
	ErrAlreadyReviewed = errors.New("donation already reviewed")
	// ErrInvalidItem means an inventory operation referenced an unknown item.
	ErrInvalidItem = errors.New("invalid inventory item")
	// ErrMalformedCallback means a webhook payload carried no parsable action token.
	ErrMalformedCallback = errors.New("malformed callback data")
)

// InsufficientStockError aborts ProduceBoxes before any write when one item
// cannot cover the requested production.
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Available float64
	Required  float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of %s: available %.2f, required %.2f", e.ItemName, e.Available, e.Required)
}
