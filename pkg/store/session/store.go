/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package session provides the reference SessionStore implementation, layered over an
// aries storage provider so any spi/storage backend can hold session records.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/spruceid/opencred-dc-api/pkg/openid4vp/verifier"
)

// Namespace is the store name opened on the underlying provider.
const Namespace = "oid4vpsession"

// Store persists session records as JSON in an spi/storage Store. Mutations of the
// same uuid are serialized through a per-record lock so a status write racing against
// another mutation observes the post-transition status and is rejected by the
// lifecycle machine instead of silently overwriting it. Distinct sessions do not
// contend.
type Store struct {
	store storage.Store
	locks map[uuid.UUID]*sync.Mutex
	mu    sync.Mutex
}

// NewStore opens the session namespace on the given provider.
func NewStore(provider storage.Provider) (*Store, error) {
	store, err := provider.OpenStore(Namespace)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	return &Store{store: store, locks: map[uuid.UUID]*sync.Mutex{}}, nil
}

// Initiate implements verifier.SessionStore.
func (s *Store) Initiate(_ context.Context, session *verifier.Session) error {
	lock := s.lock(session.UUID)
	lock.Lock()
	defer lock.Unlock()

	_, err := s.store.Get(session.UUID.String())
	if err == nil {
		return verifier.ErrConflict
	}

	if !errors.Is(err, storage.ErrDataNotFound) {
		return &verifier.StorageError{Err: err}
	}

	return s.put(session)
}

// UpdateStatus implements verifier.SessionStore. The status transition and any
// write-once payload options commit in a single record write.
func (s *Store) UpdateStatus(_ context.Context, id uuid.UUID, status verifier.Status,
	opts ...verifier.UpdateOption) error {
	options := &verifier.UpdateOptions{}

	for _, opt := range opts {
		opt(options)
	}

	lock := s.lock(id)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.get(id)
	if err != nil {
		return err
	}

	if _, err := verifier.Transition(session.Status, status); err != nil {
		return err
	}

	if err := applyWriteOnce(session, options); err != nil {
		return err
	}

	session.Status = status

	return s.put(session)
}

// GetSession implements verifier.SessionStore.
func (s *Store) GetSession(_ context.Context, id uuid.UUID) (*verifier.Session, error) {
	return s.get(id)
}

// GetSessionUnauthenticated implements verifier.SessionStore. The returned view never
// contains the session secret.
func (s *Store) GetSessionUnauthenticated(_ context.Context, id uuid.UUID) (*verifier.PublicView, error) {
	session, err := s.get(id)
	if err != nil {
		return nil, err
	}

	return session.Public(), nil
}

// RemoveSession implements verifier.SessionStore.
func (s *Store) RemoveSession(_ context.Context, id uuid.UUID) error {
	lock := s.lock(id)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.get(id); err != nil {
		return err
	}

	if err := s.store.Delete(id.String()); err != nil {
		return &verifier.StorageError{Err: err}
	}

	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()

	return nil
}

func (s *Store) lock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}

	return lock
}

func (s *Store) get(id uuid.UUID) (*verifier.Session, error) {
	data, err := s.store.Get(id.String())
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, verifier.ErrNotFound
	}

	if err != nil {
		return nil, &verifier.StorageError{Err: err}
	}

	session := &verifier.Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, &verifier.StorageError{Err: fmt.Errorf("unmarshal session record: %w", err)}
	}

	return session, nil
}

func (s *Store) put(session *verifier.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return &verifier.StorageError{Err: fmt.Errorf("marshal session record: %w", err)}
	}

	if err := s.store.Put(session.UUID.String(), data); err != nil {
		return &verifier.StorageError{Err: err}
	}

	return nil
}

// applyWriteOnce copies the payload options onto the record, rejecting any attempt to
// overwrite a field that was already set.
func applyWriteOnce(session *verifier.Session, options *verifier.UpdateOptions) error {
	if options.RequestPayload != nil {
		if session.RequestPayload != nil {
			return errors.New("request payload is write-once")
		}

		session.RequestPayload = options.RequestPayload
	}

	if options.RequestReference != "" {
		if session.RequestReference != "" {
			return errors.New("request reference is write-once")
		}

		session.RequestReference = options.RequestReference
	}

	if options.ResponsePayload != nil {
		if session.ResponsePayload != nil {
			return errors.New("response payload is write-once")
		}

		session.ResponsePayload = options.ResponsePayload
	}

	if options.Nonce != "" {
		if session.Nonce != "" {
			return errors.New("nonce is write-once")
		}

		session.Nonce = options.Nonce
	}

	return nil
}
