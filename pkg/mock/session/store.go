/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package session provides mock implementations of the verifier's session store and
// capabilities, supporting most of the reference store's behaviour with the added
// ability to override return values.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/spruceid/opencred-dc-api/pkg/openid4vp/verifier"
)

// MockStore is an in-memory verifier.SessionStore with per-method error injection.
type MockStore struct {
	Sessions map[uuid.UUID]*verifier.Session
	lock     sync.RWMutex

	ErrInitiate                  error
	ErrUpdateStatus              error
	ErrGetSession                error
	ErrGetSessionUnauthenticated error
	ErrRemoveSession             error
}

// NewMockStore returns an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{Sessions: map[uuid.UUID]*verifier.Session{}}
}

// Initiate implements verifier.SessionStore.
func (m *MockStore) Initiate(_ context.Context, session *verifier.Session) error {
	if m.ErrInitiate != nil {
		return m.ErrInitiate
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.Sessions[session.UUID]; ok {
		return verifier.ErrConflict
	}

	clone := *session
	m.Sessions[session.UUID] = &clone

	return nil
}

// UpdateStatus implements verifier.SessionStore.
func (m *MockStore) UpdateStatus(_ context.Context, id uuid.UUID, status verifier.Status,
	opts ...verifier.UpdateOption) error {
	if m.ErrUpdateStatus != nil {
		return m.ErrUpdateStatus
	}

	options := &verifier.UpdateOptions{}

	for _, opt := range opts {
		opt(options)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	session, ok := m.Sessions[id]
	if !ok {
		return verifier.ErrNotFound
	}

	if _, err := verifier.Transition(session.Status, status); err != nil {
		return err
	}

	if options.RequestPayload != nil {
		session.RequestPayload = options.RequestPayload
	}

	if options.RequestReference != "" {
		session.RequestReference = options.RequestReference
	}

	if options.ResponsePayload != nil {
		session.ResponsePayload = options.ResponsePayload
	}

	if options.Nonce != "" {
		session.Nonce = options.Nonce
	}

	session.Status = status

	return nil
}

// GetSession implements verifier.SessionStore.
func (m *MockStore) GetSession(_ context.Context, id uuid.UUID) (*verifier.Session, error) {
	if m.ErrGetSession != nil {
		return nil, m.ErrGetSession
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	session, ok := m.Sessions[id]
	if !ok {
		return nil, verifier.ErrNotFound
	}

	clone := *session

	return &clone, nil
}

// GetSessionUnauthenticated implements verifier.SessionStore.
func (m *MockStore) GetSessionUnauthenticated(_ context.Context, id uuid.UUID) (*verifier.PublicView, error) {
	if m.ErrGetSessionUnauthenticated != nil {
		return nil, m.ErrGetSessionUnauthenticated
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	session, ok := m.Sessions[id]
	if !ok {
		return nil, verifier.ErrNotFound
	}

	return session.Public(), nil
}

// RemoveSession implements verifier.SessionStore.
func (m *MockStore) RemoveSession(_ context.Context, id uuid.UUID) error {
	if m.ErrRemoveSession != nil {
		return m.ErrRemoveSession
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.Sessions[id]; !ok {
		return verifier.ErrNotFound
	}

	delete(m.Sessions, id)

	return nil
}

// MockSigner is a verifier.RequestSigner recording its inputs.
type MockSigner struct {
	SignAlg    string
	SignValue  string
	SignErr    error
	SignCalls  int
	LastSigned []byte
}

// Alg implements verifier.RequestSigner.
func (m *MockSigner) Alg() string {
	if m.SignAlg == "" {
		return "ES256"
	}

	return m.SignAlg
}

// SignRequest implements verifier.RequestSigner.
func (m *MockSigner) SignRequest(_ context.Context, payload []byte) (string, error) {
	m.SignCalls++
	m.LastSigned = payload

	if m.SignErr != nil {
		return "", m.SignErr
	}

	if m.SignValue != "" {
		return m.SignValue, nil
	}

	return "signed." + string(payload), nil
}

// MockValidator is a verifier.ResponseValidator returning a fixed outcome and counting
// invocations.
type MockValidator struct {
	Outcome       verifier.Outcome
	ValidateCalls int
	LastResponse  json.RawMessage
}

// Validate implements verifier.ResponseValidator.
func (m *MockValidator) Validate(_ context.Context, _ *verifier.Session,
	response json.RawMessage) verifier.Outcome {
	m.ValidateCalls++
	m.LastResponse = response

	return m.Outcome
}
