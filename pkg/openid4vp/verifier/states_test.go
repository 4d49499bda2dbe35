/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreated_CanTransitionTo(t *testing.T) {
	st := &created{}
	require.Equal(t, StatusNameCreated, st.Name())

	require.False(t, st.CanTransitionTo(&created{}))
	require.True(t, st.CanTransitionTo(&sentRequest{}))
	require.True(t, st.CanTransitionTo(&sentRequestByReference{}))
	require.False(t, st.CanTransitionTo(&receivedResponse{}))
	require.False(t, st.CanTransitionTo(&complete{}))
}

func TestSentRequest_CanTransitionTo(t *testing.T) {
	st := &sentRequest{}
	require.Equal(t, StatusNameSentRequest, st.Name())

	require.False(t, st.CanTransitionTo(&created{}))
	require.False(t, st.CanTransitionTo(&sentRequest{}))
	require.False(t, st.CanTransitionTo(&sentRequestByReference{}))
	require.True(t, st.CanTransitionTo(&receivedResponse{}))
	require.False(t, st.CanTransitionTo(&complete{}))
}

func TestSentRequestByReference_CanTransitionTo(t *testing.T) {
	st := &sentRequestByReference{}
	require.Equal(t, StatusNameSentRequestByReference, st.Name())

	require.False(t, st.CanTransitionTo(&created{}))
	require.False(t, st.CanTransitionTo(&sentRequest{}))
	require.False(t, st.CanTransitionTo(&sentRequestByReference{}))
	require.True(t, st.CanTransitionTo(&receivedResponse{}))
	require.False(t, st.CanTransitionTo(&complete{}))
}

func TestReceivedResponse_CanTransitionTo(t *testing.T) {
	st := &receivedResponse{}
	require.Equal(t, StatusNameReceivedResponse, st.Name())

	require.False(t, st.CanTransitionTo(&created{}))
	require.False(t, st.CanTransitionTo(&sentRequest{}))
	require.False(t, st.CanTransitionTo(&sentRequestByReference{}))
	require.False(t, st.CanTransitionTo(&receivedResponse{}))
	require.True(t, st.CanTransitionTo(&complete{}))
}

func TestComplete_CanTransitionTo(t *testing.T) {
	st := &complete{}
	require.Equal(t, StatusNameComplete, st.Name())

	require.False(t, st.CanTransitionTo(&created{}))
	require.False(t, st.CanTransitionTo(&sentRequest{}))
	require.False(t, st.CanTransitionTo(&sentRequestByReference{}))
	require.False(t, st.CanTransitionTo(&receivedResponse{}))
	require.False(t, st.CanTransitionTo(&complete{}))
}

func TestTransition(t *testing.T) {
	t.Run("legal edges", func(t *testing.T) {
		edges := []struct {
			from Status
			to   Status
		}{
			{StatusCreated(), StatusSentRequest()},
			{StatusCreated(), StatusSentRequestByReference()},
			{StatusSentRequest(), StatusReceivedResponse()},
			{StatusSentRequestByReference(), StatusReceivedResponse()},
			{StatusReceivedResponse(), StatusComplete(FailureOutcome("no match"))},
		}

		for _, edge := range edges {
			next, err := Transition(edge.from, edge.to)
			require.NoError(t, err)
			require.Equal(t, edge.to, next)
		}
	})

	t.Run("illegal edges", func(t *testing.T) {
		edges := []struct {
			from Status
			to   Status
		}{
			{StatusCreated(), StatusReceivedResponse()},
			{StatusCreated(), StatusComplete(FailureOutcome("x"))},
			{StatusSentRequest(), StatusCreated()},
			{StatusSentRequest(), StatusSentRequestByReference()},
			{StatusReceivedResponse(), StatusCreated()},
			{StatusReceivedResponse(), StatusSentRequest()},
		}

		for _, edge := range edges {
			_, err := Transition(edge.from, edge.to)

			transitionErr := &InvalidTransitionError{}
			require.ErrorAs(t, err, &transitionErr)
			require.Equal(t, edge.from.Name(), transitionErr.From)
			require.Equal(t, edge.to.Name(), transitionErr.To)
		}
	})

	t.Run("terminal statuses accept nothing", func(t *testing.T) {
		terminal := StatusComplete(SuccessOutcome([]byte(`{"claims":{}}`)))

		for _, next := range []Status{
			StatusCreated(), StatusSentRequest(), StatusSentRequestByReference(),
			StatusReceivedResponse(), StatusComplete(ErrorOutcome("again")),
		} {
			_, err := Transition(terminal, next)
			require.Error(t, err)
		}
	})

	t.Run("zero value status is rejected", func(t *testing.T) {
		_, err := Transition(Status{}, StatusSentRequest())
		require.Error(t, err)
	})
}
