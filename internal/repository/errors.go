// Package repository holds the in-memory stores behind the mock storefront
// backend. The sentinel errors let handlers tell failure scenarios apart:
// ErrNotFound maps to 404 and ErrConflict to 409.
package repository

import "errors"

// ErrNotFound is returned when no record matches the lookup.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an update cannot be applied to the current
// state, for example an order status moving backwards or an SKU that is
// already taken.
var ErrConflict = errors.New("conflict")

// ErrInsufficientStock is returned when an order asks for more units than
// a product has left.
var ErrInsufficientStock = errors.New("insufficient stock")
