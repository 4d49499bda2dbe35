/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

// the session's state in the lifecycle machine.
type state interface {
	// Name of this state.
	Name() string
	// Whether this state allows transitioning into the next state.
	CanTransitionTo(next state) bool
}

// created is the initial state.
type created struct{}

func (s *created) Name() string {
	return StatusNameCreated
}

func (s *created) CanTransitionTo(st state) bool {
	return st.Name() == StatusNameSentRequest ||
		st.Name() == StatusNameSentRequestByReference
}

// sentRequest is reached when a self-contained request object was handed to the wallet.
type sentRequest struct{}

func (s *sentRequest) Name() string {
	return StatusNameSentRequest
}

func (s *sentRequest) CanTransitionTo(st state) bool {
	return st.Name() == StatusNameReceivedResponse
}

// sentRequestByReference is reached when the request object was published for retrieval
// through the reference endpoint.
type sentRequestByReference struct{}

func (s *sentRequestByReference) Name() string {
	return StatusNameSentRequestByReference
}

func (s *sentRequestByReference) CanTransitionTo(st state) bool {
	return st.Name() == StatusNameReceivedResponse
}

// receivedResponse is reached when the wallet's response was recorded, before
// validation has produced an outcome.
type receivedResponse struct{}

func (s *receivedResponse) Name() string {
	return StatusNameReceivedResponse
}

func (s *receivedResponse) CanTransitionTo(st state) bool {
	return st.Name() == StatusNameComplete
}

// complete is terminal.
type complete struct{}

func (s *complete) Name() string {
	return StatusNameComplete
}

func (s *complete) CanTransitionTo(_ state) bool {
	return false
}

func stateFromName(name string) (state, bool) {
	switch name {
	case StatusNameCreated:
		return &created{}, true
	case StatusNameSentRequest:
		return &sentRequest{}, true
	case StatusNameSentRequestByReference:
		return &sentRequestByReference{}, true
	case StatusNameReceivedResponse:
		return &receivedResponse{}, true
	case StatusNameComplete:
		return &complete{}, true
	}

	return nil, false
}

// Transition validates the edge from current to next and returns next unchanged if the
// edge is legal. An illegal edge, including any edge out of a terminal status, yields an
// *InvalidTransitionError and no other effect.
func Transition(current, next Status) (Status, error) {
	from, ok := stateFromName(current.Name())
	if !ok {
		return Status{}, &InvalidTransitionError{From: current.Name(), To: next.Name()}
	}

	to, ok := stateFromName(next.Name())
	if !ok {
		return Status{}, &InvalidTransitionError{From: current.Name(), To: next.Name()}
	}

	if !from.CanTransitionTo(to) {
		return Status{}, &InvalidTransitionError{From: current.Name(), To: next.Name()}
	}

	return next, nil
}
