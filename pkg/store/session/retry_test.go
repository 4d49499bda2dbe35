/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	mocksession "github.com/spruceid/opencred-dc-api/pkg/mock/session"
	"github.com/spruceid/opencred-dc-api/pkg/openid4vp/verifier"
)

// flakyStore fails reads with a transient storage error a fixed number of times before
// delegating to the wrapped store.
type flakyStore struct {
	*mocksession.MockStore
	failures int
	calls    int
}

func (f *flakyStore) GetSession(ctx context.Context, id uuid.UUID) (*verifier.Session, error) {
	f.calls++

	if f.calls <= f.failures {
		return nil, &verifier.StorageError{Err: errors.New("transient backend failure")}
	}

	return f.MockStore.GetSession(ctx, id)
}

func TestRetryStore(t *testing.T) {
	session := &verifier.Session{
		UUID:      uuid.New(),
		Secret:    "c2VjcmV0",
		Status:    verifier.StatusCreated(),
		CreatedAt: time.Now().UTC(),
	}

	t.Run("transient failures are retried", func(t *testing.T) {
		inner := &flakyStore{MockStore: mocksession.NewMockStore(), failures: 2}
		require.NoError(t, inner.Initiate(context.Background(), session))

		store := NewRetryStore(inner, WithInterval(time.Millisecond))

		got, err := store.GetSession(context.Background(), session.UUID)
		require.NoError(t, err)
		require.Equal(t, session.UUID, got.UUID)
		require.Equal(t, 3, inner.calls)
	})

	t.Run("attempts are bounded", func(t *testing.T) {
		inner := &flakyStore{MockStore: mocksession.NewMockStore(), failures: 10}
		store := NewRetryStore(inner, WithAttempts(2), WithInterval(time.Millisecond))

		_, err := store.GetSession(context.Background(), session.UUID)

		storageErr := &verifier.StorageError{}
		require.ErrorAs(t, err, &storageErr)
		require.Equal(t, 3, inner.calls)
	})

	t.Run("definitive failures are not retried", func(t *testing.T) {
		inner := &flakyStore{MockStore: mocksession.NewMockStore()}
		store := NewRetryStore(inner, WithInterval(time.Millisecond))

		_, err := store.GetSession(context.Background(), uuid.New())
		require.ErrorIs(t, err, verifier.ErrNotFound)
		require.Equal(t, 1, inner.calls)
	})

	t.Run("writes pass through", func(t *testing.T) {
		inner := mocksession.NewMockStore()
		store := NewRetryStore(inner)

		other := *session
		other.UUID = uuid.New()

		require.NoError(t, store.Initiate(context.Background(), &other))
		require.NoError(t, store.UpdateStatus(context.Background(), other.UUID,
			verifier.StatusSentRequest()))

		view, err := store.GetSessionUnauthenticated(context.Background(), other.UUID)
		require.NoError(t, err)
		require.Equal(t, verifier.StatusNameSentRequest, view.Status.Name())

		require.NoError(t, store.RemoveSession(context.Background(), other.UUID))
	})
}
