// Package repository holds the persistence side of the payment ledger.
// The sentinel errors below are shared by every store implementation so
// that the ledger can translate storage failures without knowing which
// backend produced them.
package repository

import "errors"

// ErrNotFound is returned when a row addressed by id or token does not
// exist.  Implementations translate sql.ErrNoRows into it.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with existing state, such
// as a duplicate payment-link token.
var ErrConflict = errors.New("conflict")
