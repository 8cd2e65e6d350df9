// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates an entity failed its invariants and was rejected.
var ErrValidation = errors.New("validation failed")

// ErrConflict indicates a write raced with another writer for the same key.
var ErrConflict = errors.New("conflict: resource was modified by another request")
