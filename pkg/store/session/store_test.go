/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	mockstorage "github.com/hyperledger/aries-framework-go/component/storageutil/mock/storage"
	"github.com/stretchr/testify/require"

	"github.com/spruceid/opencred-dc-api/pkg/openid4vp/verifier"
)

func newSession() *verifier.Session {
	return &verifier.Session{
		UUID:      uuid.New(),
		Secret:    "c2VjcmV0",
		Status:    verifier.StatusCreated(),
		CreatedAt: time.Now().UTC(),
	}
}

func TestNewStore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store, err := NewStore(mem.NewProvider())
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("provider failure", func(t *testing.T) {
		provider := mockstorage.NewMockStoreProvider()
		provider.FailNamespace = Namespace

		_, err := NewStore(provider)
		require.Error(t, err)
	})
}

func TestStore_Initiate(t *testing.T) {
	t.Run("persists a new record", func(t *testing.T) {
		store, err := NewStore(mem.NewProvider())
		require.NoError(t, err)

		session := newSession()
		require.NoError(t, store.Initiate(context.Background(), session))

		got, err := store.GetSession(context.Background(), session.UUID)
		require.NoError(t, err)
		require.Equal(t, session, got)
	})

	t.Run("duplicate uuid conflicts", func(t *testing.T) {
		store, err := NewStore(mem.NewProvider())
		require.NoError(t, err)

		session := newSession()
		require.NoError(t, store.Initiate(context.Background(), session))
		require.ErrorIs(t, store.Initiate(context.Background(), session), verifier.ErrConflict)
	})

	t.Run("backend failure wraps as storage error", func(t *testing.T) {
		provider := mockstorage.NewMockStoreProvider()
		provider.Store.ErrGet = errors.New("backend down")

		store, err := NewStore(provider)
		require.NoError(t, err)

		err = store.Initiate(context.Background(), newSession())

		storageErr := &verifier.StorageError{}
		require.ErrorAs(t, err, &storageErr)
	})
}

func TestStore_UpdateStatus(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		store, err := NewStore(mem.NewProvider())
		require.NoError(t, err)

		err = store.UpdateStatus(context.Background(), uuid.New(), verifier.StatusSentRequest())
		require.ErrorIs(t, err, verifier.ErrNotFound)
	})

	t.Run("commits status and payloads together", func(t *testing.T) {
		store, err := NewStore(mem.NewProvider())
		require.NoError(t, err)

		session := newSession()
		require.NoError(t, store.Initiate(context.Background(), session))

		payload := json.RawMessage(`"signed-request"`)

		err = store.UpdateStatus(context.Background(), session.UUID,
			verifier.StatusSentRequestByReference(),
			verifier.WithRequestPayload(payload),
			verifier.WithRequestReference("https://verifier.example.com/oid4vp/request/x"),
			verifier.WithNonce("bm9uY2U"))
		require.NoError(t, err)

		got, err := store.GetSession(context.Background(), session.UUID)
		require.NoError(t, err)
		require.Equal(t, verifier.StatusNameSentRequestByReference, got.Status.Name())
		require.Equal(t, payload, got.RequestPayload)
		require.Equal(t, "bm9uY2U", got.Nonce)
	})

	t.Run("illegal transitions are rejected without a write", func(t *testing.T) {
		store, err := NewStore(mem.NewProvider())
		require.NoError(t, err)

		session := newSession()
		require.NoError(t, store.Initiate(context.Background(), session))

		err = store.UpdateStatus(context.Background(), session.UUID,
			verifier.StatusReceivedResponse(),
			verifier.WithResponsePayload(json.RawMessage(`{}`)))

		transitionErr := &verifier.InvalidTransitionError{}
		require.ErrorAs(t, err, &transitionErr)

		got, err := store.GetSession(context.Background(), session.UUID)
		require.NoError(t, err)
		require.Equal(t, verifier.StatusNameCreated, got.Status.Name())
		require.Empty(t, got.ResponsePayload)
	})

	t.Run("write-once fields cannot be overwritten", func(t *testing.T) {
		store, err := NewStore(mem.NewProvider())
		require.NoError(t, err)

		session := newSession()
		session.Status = verifier.StatusSentRequest()
		session.RequestPayload = json.RawMessage(`"first"`)
		require.NoError(t, store.Initiate(context.Background(), session))

		err = store.UpdateStatus(context.Background(), session.UUID,
			verifier.StatusReceivedResponse(),
			verifier.WithRequestPayload(json.RawMessage(`"second"`)))
		require.EqualError(t, err, "request payload is write-once")

		got, err := store.GetSession(context.Background(), session.UUID)
		require.NoError(t, err)
		require.Equal(t, json.RawMessage(`"first"`), got.RequestPayload)
		require.Equal(t, verifier.StatusNameSentRequest, got.Status.Name())
	})
}

func TestStore_GetSessionUnauthenticated(t *testing.T) {
	store, err := NewStore(mem.NewProvider())
	require.NoError(t, err)

	session := newSession()
	session.Status = verifier.StatusSentRequestByReference()
	session.RequestPayload = json.RawMessage(`"signed-request"`)
	require.NoError(t, store.Initiate(context.Background(), session))

	view, err := store.GetSessionUnauthenticated(context.Background(), session.UUID)
	require.NoError(t, err)
	require.Equal(t, session.RequestPayload, view.RequestPayload)

	data, err := json.Marshal(view)
	require.NoError(t, err)
	require.NotContains(t, string(data), session.Secret)

	_, err = store.GetSessionUnauthenticated(context.Background(), uuid.New())
	require.ErrorIs(t, err, verifier.ErrNotFound)
}

func TestStore_RemoveSession(t *testing.T) {
	store, err := NewStore(mem.NewProvider())
	require.NoError(t, err)

	session := newSession()
	require.NoError(t, store.Initiate(context.Background(), session))

	require.NoError(t, store.RemoveSession(context.Background(), session.UUID))
	require.ErrorIs(t, store.RemoveSession(context.Background(), session.UUID), verifier.ErrNotFound)

	_, err = store.GetSession(context.Background(), session.UUID)
	require.ErrorIs(t, err, verifier.ErrNotFound)
}
