package app

import "errors"

var (
	// ErrNotFound indicates a referenced target does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPathNotFound indicates a target scope path matches no document in the
	// corpus.
	ErrPathNotFound = errors.New("path not found in corpus")
)
