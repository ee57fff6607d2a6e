// Package store holds what the artifact backends share.
package store

import "errors"

// ErrNotFound is returned when an artifact or a user sequence does not exist.
var ErrNotFound = errors.New("artifact not found")
