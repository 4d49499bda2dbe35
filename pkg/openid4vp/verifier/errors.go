/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is returned when a caller-supplied session secret does not match
	// the stored secret. The stored session is never modified on a mismatch.
	ErrAuthentication = errors.New("session secret mismatch")
	// ErrNotFound is returned when no session exists for the given uuid.
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned by SessionStore.Initiate when a session with the same uuid
	// already exists.
	ErrConflict = errors.New("session already exists")
)

// InvalidTransitionError is returned when an operation attempts an illegal status
// transition, including any transition out of a terminal status.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// StorageError wraps a backend I/O failure reported by a SessionStore.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session storage: %s", e.Err.Error())
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CryptoError wraps a signing or verification failure inside the signing capability.
type CryptoError struct {
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto: %s", e.Err.Error())
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when a caller-supplied payload is malformed before any
// state is touched. Wallet-facing protocol failures are not reported through this type;
// they become a terminal Complete status instead.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Msg)
}
