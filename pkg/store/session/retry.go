/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/spruceid/opencred-dc-api/pkg/openid4vp/verifier"
)

const (
	defaultRetryAttempts = 3
	defaultRetryInterval = 50 * time.Millisecond
)

// RetryStore decorates a SessionStore with exponential backoff on transient backend
// failures. Only *verifier.StorageError is retried; not-found, conflict, transition
// and authentication failures are definitive and returned immediately.
type RetryStore struct {
	next     verifier.SessionStore
	attempts uint64
	interval time.Duration
}

// RetryOption configures a RetryStore.
type RetryOption func(r *RetryStore)

// WithAttempts sets how many retries follow the initial attempt.
func WithAttempts(attempts uint64) RetryOption {
	return func(r *RetryStore) {
		r.attempts = attempts
	}
}

// WithInterval sets the initial backoff interval.
func WithInterval(interval time.Duration) RetryOption {
	return func(r *RetryStore) {
		r.interval = interval
	}
}

// NewRetryStore wraps next with retry behaviour.
func NewRetryStore(next verifier.SessionStore, opts ...RetryOption) *RetryStore {
	r := &RetryStore{
		next:     next,
		attempts: defaultRetryAttempts,
		interval: defaultRetryInterval,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Initiate implements verifier.SessionStore.
func (r *RetryStore) Initiate(ctx context.Context, session *verifier.Session) error {
	return r.retry(ctx, func() error {
		return r.next.Initiate(ctx, session)
	})
}

// UpdateStatus implements verifier.SessionStore.
func (r *RetryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status verifier.Status,
	opts ...verifier.UpdateOption) error {
	return r.retry(ctx, func() error {
		return r.next.UpdateStatus(ctx, id, status, opts...)
	})
}

// GetSession implements verifier.SessionStore.
func (r *RetryStore) GetSession(ctx context.Context, id uuid.UUID) (*verifier.Session, error) {
	var session *verifier.Session

	err := r.retry(ctx, func() error {
		var err error
		session, err = r.next.GetSession(ctx, id)

		return err
	})

	return session, err
}

// GetSessionUnauthenticated implements verifier.SessionStore.
func (r *RetryStore) GetSessionUnauthenticated(ctx context.Context, id uuid.UUID) (*verifier.PublicView, error) {
	var view *verifier.PublicView

	err := r.retry(ctx, func() error {
		var err error
		view, err = r.next.GetSessionUnauthenticated(ctx, id)

		return err
	})

	return view, err
}

// RemoveSession implements verifier.SessionStore.
func (r *RetryStore) RemoveSession(ctx context.Context, id uuid.UUID) error {
	return r.retry(ctx, func() error {
		return r.next.RemoveSession(ctx, id)
	})
}

func (r *RetryStore) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.interval

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}

		var storageErr *verifier.StorageError
		if errors.As(err, &storageErr) {
			return err
		}

		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, r.attempts), ctx))
}
