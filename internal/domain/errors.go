package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the service layer wraps exactly one
// of these, so callers can classify failures with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrState      = errors.New("invalid state")
	ErrConflict   = errors.New("conflict")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
)

var (
	// Discussions
	ErrParentMismatch   = fmt.Errorf("%w: parent belongs to a different discussion", ErrValidation)
	ErrDiscussionClosed = fmt.Errorf("%w: discussion closed", ErrState)
	ErrInvalidKind      = fmt.Errorf("%w: unknown discussion kind", ErrValidation)

	// Catalog
	ErrInvalidRating   = fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	ErrNotPurchased    = fmt.Errorf("%w: you can only review products you have purchased", ErrPermission)
	ErrAlreadyReviewed = fmt.Errorf("%w: you have already reviewed this product", ErrConflict)
	ErrInvalidPrice    = fmt.Errorf("%w: price must not be negative", ErrValidation)

	// Cart and orders
	ErrInvalidQuantity    = fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	ErrOutOfStock         = fmt.Errorf("%w: product is out of stock", ErrState)
	ErrCartEmpty          = fmt.Errorf("%w: cart empty", ErrState)
	ErrInvalidOrderStatus = fmt.Errorf("%w: invalid order status", ErrValidation)

	// Wishlist
	ErrAlreadyInWishlist = fmt.Errorf("%w: product already in wishlist", ErrConflict)
	ErrNotInWishlist     = fmt.Errorf("product not in wishlist: %w", ErrNotFound)

	// Throttling
	ErrRateLimited = fmt.Errorf("%w: rate limit exceeded", ErrState)

	// Authorization
	ErrAdminOnly    = fmt.Errorf("%w: admin role required", ErrPermission)
	ErrNotOwner     = fmt.Errorf("%w: only the owner or an admin may do this", ErrPermission)
	ErrBanned       = fmt.Errorf("%w: account is banned", ErrPermission)
	ErrAuthRequired = fmt.Errorf("%w: authentication required", ErrPermission)
)

// Invalid builds a validation error for a single field.
func Invalid(field, message string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, message)
}

// Class returns the error class err belongs to, or nil when err is not a
// domain error.
func Class(err error) error {
	for _, class := range []error{ErrValidation, ErrState, ErrConflict, ErrPermission, ErrNotFound} {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}
