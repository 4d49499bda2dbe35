/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status names. A Status serializes as a bare string for the payload-less states and as
// an object carrying the outcome for the terminal state.
const (
	StatusNameCreated                = "Created"
	StatusNameSentRequestByReference = "SentRequestByReference"
	StatusNameSentRequest            = "SentRequest"
	StatusNameReceivedResponse       = "ReceivedResponse"
	StatusNameComplete               = "Complete"
)

// Outcome kinds carried by a terminal Complete status.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Outcome is the terminal result of a presentation exchange. Exactly one of the three
// variants is set: Success carries opaque info produced by the response validator,
// Failure carries the reason a cryptographically sound exchange was rejected, and Error
// carries the cause of a malformed or unverifiable response.
type Outcome struct {
	kind   string
	info   json.RawMessage
	reason string
	cause  string
}

// SuccessOutcome builds a success outcome carrying validator-supplied info.
func SuccessOutcome(info json.RawMessage) Outcome {
	return Outcome{kind: OutcomeSuccess, info: info}
}

// FailureOutcome builds a failure outcome with the given reason.
func FailureOutcome(reason string) Outcome {
	return Outcome{kind: OutcomeFailure, reason: reason}
}

// ErrorOutcome builds an error outcome with the given cause.
func ErrorOutcome(cause string) Outcome {
	return Outcome{kind: OutcomeError, cause: cause}
}

// Kind returns which variant this outcome is: OutcomeSuccess, OutcomeFailure or
// OutcomeError.
func (o Outcome) Kind() string { return o.kind }

// Info returns the opaque success payload. Nil unless Kind() == OutcomeSuccess.
func (o Outcome) Info() json.RawMessage { return o.info }

// Reason returns the failure reason. Empty unless Kind() == OutcomeFailure.
func (o Outcome) Reason() string { return o.reason }

// Cause returns the error cause. Empty unless Kind() == OutcomeError.
func (o Outcome) Cause() string { return o.cause }

// MarshalJSON implements json.Marshaler.
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch o.kind {
	case OutcomeSuccess:
		info := o.info
		if info == nil {
			info = json.RawMessage("null")
		}

		return json.Marshal(map[string]json.RawMessage{OutcomeSuccess: info})
	case OutcomeFailure:
		return json.Marshal(map[string]string{OutcomeFailure: o.reason})
	case OutcomeError:
		return json.Marshal(map[string]string{OutcomeError: o.cause})
	}

	return nil, fmt.Errorf("cannot marshal outcome of unknown kind %q", o.kind)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage

	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("unmarshal outcome: %w", err)
	}

	if len(tagged) != 1 {
		return errors.New("unmarshal outcome: expected exactly one variant")
	}

	if info, ok := tagged[OutcomeSuccess]; ok {
		*o = SuccessOutcome(info)

		return nil
	}

	if raw, ok := tagged[OutcomeFailure]; ok {
		var reason string
		if err := json.Unmarshal(raw, &reason); err != nil {
			return fmt.Errorf("unmarshal failure reason: %w", err)
		}

		*o = FailureOutcome(reason)

		return nil
	}

	if raw, ok := tagged[OutcomeError]; ok {
		var cause string
		if err := json.Unmarshal(raw, &cause); err != nil {
			return fmt.Errorf("unmarshal error cause: %w", err)
		}

		*o = ErrorOutcome(cause)

		return nil
	}

	return errors.New("unmarshal outcome: unknown variant")
}

// Status is the current position of a session in its lifecycle. The zero value is not a
// valid status; use one of the constructors.
type Status struct {
	name    string
	outcome *Outcome
}

// StatusCreated returns the initial status.
func StatusCreated() Status { return Status{name: StatusNameCreated} }

// StatusSentRequestByReference returns the status of a session whose request object is
// published for by-reference retrieval.
func StatusSentRequestByReference() Status { return Status{name: StatusNameSentRequestByReference} }

// StatusSentRequest returns the status of a session whose request object was delivered
// inline.
func StatusSentRequest() Status { return Status{name: StatusNameSentRequest} }

// StatusReceivedResponse returns the status of a session whose wallet response has been
// recorded but not yet validated.
func StatusReceivedResponse() Status { return Status{name: StatusNameReceivedResponse} }

// StatusComplete returns the terminal status carrying the exchange outcome.
func StatusComplete(outcome Outcome) Status {
	return Status{name: StatusNameComplete, outcome: &outcome}
}

// Name returns the status name, one of the StatusName constants.
func (s Status) Name() string { return s.name }

// Outcome returns the terminal outcome. The second return is false unless the status is
// Complete.
func (s Status) Outcome() (Outcome, bool) {
	if s.outcome == nil {
		return Outcome{}, false
	}

	return *s.outcome, true
}

// IsTerminal reports whether no further transitions are legal from this status.
func (s Status) IsTerminal() bool { return s.name == StatusNameComplete }

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	switch s.name {
	case StatusNameCreated, StatusNameSentRequestByReference, StatusNameSentRequest,
		StatusNameReceivedResponse:
		return json.Marshal(s.name)
	case StatusNameComplete:
		if s.outcome == nil {
			return nil, errors.New("cannot marshal Complete status without an outcome")
		}

		return json.Marshal(map[string]Outcome{StatusNameComplete: *s.outcome})
	}

	return nil, fmt.Errorf("cannot marshal status of unknown name %q", s.name)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string

	if err := json.Unmarshal(data, &name); err == nil {
		switch name {
		case StatusNameCreated, StatusNameSentRequestByReference, StatusNameSentRequest,
			StatusNameReceivedResponse:
			*s = Status{name: name}

			return nil
		default:
			return fmt.Errorf("unmarshal status: unknown name %q", name)
		}
	}

	var tagged map[string]Outcome

	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("unmarshal status: %w", err)
	}

	outcome, ok := tagged[StatusNameComplete]
	if !ok || len(tagged) != 1 {
		return errors.New("unmarshal status: expected a Complete variant")
	}

	*s = StatusComplete(outcome)

	return nil
}

// Session is one presentation exchange between this verifier and a wallet.
// The secret authorizes every mutating operation and is never exposed through the
// unauthenticated read path. RequestPayload, RequestReference and ResponsePayload are
// write-once.
type Session struct {
	UUID             uuid.UUID       `json:"uuid"`
	Secret           string          `json:"secret"`
	Status           Status          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	Nonce            string          `json:"nonce,omitempty"`
	RequestPayload   json.RawMessage `json:"request_payload,omitempty"`
	RequestReference string          `json:"request_reference,omitempty"`
	ResponsePayload  json.RawMessage `json:"response_payload,omitempty"`
}

// PublicView is the reduced session view reachable without the session secret. It lets
// a wallet retrieve a by-reference request payload using only the uuid it was given.
type PublicView struct {
	Status           Status          `json:"status"`
	RequestPayload   json.RawMessage `json:"request_payload,omitempty"`
	RequestReference string          `json:"request_reference,omitempty"`
}

// Public returns the unauthenticated view of the session.
func (s *Session) Public() *PublicView {
	return &PublicView{
		Status:           s.Status,
		RequestPayload:   s.RequestPayload,
		RequestReference: s.RequestReference,
	}
}

// SessionCredentials is returned to the verifier backend when a new session is created.
type SessionCredentials struct {
	UUID   uuid.UUID `json:"uuid"`
	Secret string    `json:"secret"`
}
