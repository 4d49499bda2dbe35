/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// UpdateOptions carries the write-once payload fields that commit atomically with a
// status transition.
type UpdateOptions struct {
	RequestPayload   json.RawMessage
	RequestReference string
	ResponsePayload  json.RawMessage
	Nonce            string
}

// UpdateOption sets a write-once field on an UpdateStatus call.
type UpdateOption func(opts *UpdateOptions)

// WithRequestPayload persists the constructed request object together with the status
// transition.
func WithRequestPayload(payload json.RawMessage) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.RequestPayload = payload
	}
}

// WithRequestReference persists the reference handle together with the status
// transition.
func WithRequestReference(reference string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.RequestReference = reference
	}
}

// WithResponsePayload persists the wallet's response together with the status
// transition.
func WithResponsePayload(payload json.RawMessage) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.ResponsePayload = payload
	}
}

// WithNonce persists the nonce the request object was bound to together with the
// status transition.
func WithNonce(nonce string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Nonce = nonce
	}
}

// SessionStore is the pluggable persistence contract for session records. Any concrete
// backend (in-memory, database, remote service) implements it uniformly.
//
// Implementations must guarantee atomicity per single-record operation: a second reader
// never observes a partially applied write. Concurrent mutations of the same uuid must
// be serialized so that an UpdateStatus racing against another mutation observes the
// post-transition status and fails with *InvalidTransitionError rather than silently
// overwriting it. Cross-record transactions are not required.
type SessionStore interface {
	// Initiate persists a brand-new session. It fails with ErrConflict if a session
	// with the same uuid already exists.
	Initiate(ctx context.Context, session *Session) error

	// UpdateStatus atomically replaces the status of the session, applying any
	// write-once payload options in the same commit. It fails with ErrNotFound if no
	// such session exists and with *InvalidTransitionError if the edge from the
	// currently stored status is illegal. It must not partially apply.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, opts ...UpdateOption) error

	// GetSession returns the full session record, secret included. Callers are the
	// verifier's own backend; the wallet never reaches this path. It fails with
	// ErrNotFound if no such session exists.
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)

	// GetSessionUnauthenticated returns the reduced view reachable without the session
	// secret. It fails with ErrNotFound if no such session exists.
	GetSessionUnauthenticated(ctx context.Context, id uuid.UUID) (*PublicView, error)

	// RemoveSession deletes the record. It fails with ErrNotFound if no such session
	// exists. The lifecycle core never calls this; it exists for external retention
	// policies.
	RemoveSession(ctx context.Context, id uuid.UUID) error
}
