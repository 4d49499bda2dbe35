/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
)

var logger = log.New("opencred/oid4vp-verifier")

// Delivery is how a constructed request object reaches the wallet.
type Delivery int

const (
	// DeliverInline embeds the signed request object directly in the response to the
	// wallet.
	DeliverInline Delivery = iota
	// DeliverByReference publishes the request object at the reference endpoint and
	// hands the wallet a resolvable handle instead.
	DeliverByReference
)

// DeliveryPolicy decides between inline and by-reference delivery for a request. The
// exact criteria are a configuration surface, not hard-coded in the core.
type DeliveryPolicy func(request json.RawMessage, userAgent string) Delivery

// defaultInlineLimit is the request size above which the default policy switches to
// by-reference delivery.
const defaultInlineLimit = 2048

// DefaultDeliveryPolicy delivers inline up to inlineLimit bytes, and by reference above
// it or when the user agent contains one of the constrained substrings. Some user
// agents are known to mishandle large inline request objects.
func DefaultDeliveryPolicy(inlineLimit int, constrainedUserAgents ...string) DeliveryPolicy {
	return func(request json.RawMessage, userAgent string) Delivery {
		if len(request) > inlineLimit {
			return DeliverByReference
		}

		for _, ua := range constrainedUserAgents {
			if ua != "" && strings.Contains(userAgent, ua) {
				return DeliverByReference
			}
		}

		return DeliverInline
	}
}

// RequestHandle is what InitiateRequest hands back to the caller: the signed request
// object for inline delivery, or the reference URL a wallet resolves against the
// reference endpoint.
type RequestHandle struct {
	Delivery  Delivery
	Request   string
	Reference *url.URL
}

// Manager orchestrates the session lifecycle: creation, request initiation and response
// submission. It holds no mutable state of its own; all shared state lives in the
// SessionStore.
type Manager struct {
	cfg       *Config
	store     SessionStore
	legacy    SessionStore
	signer    RequestSigner
	validator ResponseValidator
	policy    DeliveryPolicy
}

// Option configures a Manager.
type Option func(m *Manager)

// WithRequestSigner replaces the signing capability built from the config's key
// material.
func WithRequestSigner(signer RequestSigner) Option {
	return func(m *Manager) {
		m.signer = signer
	}
}

// WithResponseValidator replaces the validator built from the config's certificate
// chain.
func WithResponseValidator(validator ResponseValidator) Option {
	return func(m *Manager) {
		m.validator = validator
	}
}

// WithDeliveryPolicy replaces the default inline/by-reference decision rule.
func WithDeliveryPolicy(policy DeliveryPolicy) Option {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithLegacyStore adds a secondary store consulted on reads when the primary store has
// no record, so sessions provisioned by an earlier deployment stay reachable.
func WithLegacyStore(store SessionStore) Option {
	return func(m *Manager) {
		m.legacy = store
	}
}

// New builds a Manager from the configuration and the injected session store.
func New(cfg *Config, store SessionStore, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("verifier manager: %w", err)
	}

	if store == nil {
		return nil, errors.New("verifier manager: a session store is required")
	}

	m := &Manager{
		cfg:    cfg,
		store:  store,
		policy: DefaultDeliveryPolicy(defaultInlineLimit),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.signer == nil && len(cfg.KeyPEM) > 0 {
		signer, err := NewJWSRequestSigner(cfg)
		if err != nil {
			return nil, fmt.Errorf("verifier manager: %w", err)
		}

		m.signer = signer
	}

	if m.validator == nil {
		if len(cfg.CertChainPEM) == 0 {
			return nil, errors.New("verifier manager: a response validator is required")
		}

		validator, err := NewJWSResponseValidator(cfg)
		if err != nil {
			return nil, fmt.Errorf("verifier manager: %w", err)
		}

		m.validator = validator
	}

	return m, nil
}

// CreateNewSession generates a session with a fresh uuid and secret and persists it in
// the Created status. The returned credentials are for the verifier's own backend and
// must never reach the wallet.
func (m *Manager) CreateNewSession(ctx context.Context) (*SessionCredentials, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}

	session := &Session{
		UUID:      uuid.New(),
		Secret:    secret,
		Status:    StatusCreated(),
		CreatedAt: time.Now().UTC(),
	}

	if err := m.store.Initiate(ctx, session); err != nil {
		return nil, fmt.Errorf("persist new session: %w", err)
	}

	logger.Debugf("created session %s", session.UUID)

	return &SessionCredentials{UUID: session.UUID, Secret: secret}, nil
}

// InitiateOption configures a single InitiateRequest call.
type InitiateOption func(opts *initiateOptions)

type initiateOptions struct {
	userAgent string
}

// WithUserAgent passes the wallet-side user agent to the delivery policy.
func WithUserAgent(userAgent string) InitiateOption {
	return func(opts *initiateOptions) {
		opts.userAgent = userAgent
	}
}

// InitiateRequest authenticates the caller, constructs the (optionally signed) request
// object for a session in the Created status and advances it to SentRequest or
// SentRequestByReference depending on the delivery policy.
func (m *Manager) InitiateRequest(ctx context.Context, id uuid.UUID, secret string,
	request json.RawMessage, opts ...InitiateOption) (*RequestHandle, error) {
	options := &initiateOptions{}

	for _, opt := range opts {
		opt(options)
	}

	session, err := m.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if !secretsEqual(secret, session.Secret) {
		logger.Warnf("rejected initiate request for session %s: secret mismatch", id)

		return nil, ErrAuthentication
	}

	if session.Status.Name() != StatusNameCreated {
		return nil, &InvalidTransitionError{From: session.Status.Name(), To: StatusNameSentRequest}
	}

	nonce, err := newSecret()
	if err != nil {
		return nil, err
	}

	requestObject, err := m.buildRequestObject(ctx, session, request, nonce)
	if err != nil {
		return nil, err
	}

	delivery := m.policy(request, options.userAgent)

	switch delivery {
	case DeliverByReference:
		reference := m.cfg.ReferenceURL(id)

		err = m.updateSessionStatus(ctx, session, id, StatusSentRequestByReference(),
			WithRequestPayload(requestObject), WithRequestReference(reference.String()),
			WithNonce(nonce))
		if err != nil {
			return nil, err
		}

		logger.Debugf("session %s advanced to %s", id, StatusNameSentRequestByReference)

		return &RequestHandle{Delivery: DeliverByReference, Reference: reference}, nil
	default:
		err = m.updateSessionStatus(ctx, session, id, StatusSentRequest(),
			WithRequestPayload(requestObject), WithNonce(nonce))
		if err != nil {
			return nil, err
		}

		logger.Debugf("session %s advanced to %s", id, StatusNameSentRequest)

		return &RequestHandle{Delivery: DeliverInline, Request: string(requestObject)}, nil
	}
}

// SubmitResponse authenticates the caller, records the wallet's response, runs
// validation and advances the session to its terminal status. Repeated submission on a
// completed session is idempotent: the stored outcome is returned and validation does
// not run again.
func (m *Manager) SubmitResponse(ctx context.Context, id uuid.UUID, secret string,
	response json.RawMessage) (Outcome, error) {
	session, err := m.loadSession(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	if !secretsEqual(secret, session.Secret) {
		logger.Warnf("rejected response submission for session %s: secret mismatch", id)

		return Outcome{}, ErrAuthentication
	}

	if outcome, ok := session.Status.Outcome(); ok {
		logger.Debugf("session %s already complete, returning stored outcome", id)

		return outcome, nil
	}

	switch session.Status.Name() {
	case StatusNameSentRequest, StatusNameSentRequestByReference:
	default:
		return Outcome{}, &InvalidTransitionError{
			From: session.Status.Name(),
			To:   StatusNameReceivedResponse,
		}
	}

	err = m.updateSessionStatus(ctx, session, id, StatusReceivedResponse(),
		WithResponsePayload(response))
	if err != nil {
		return Outcome{}, err
	}

	outcome := m.validator.Validate(ctx, session, response)

	if err := m.updateSessionStatus(ctx, session, id, StatusComplete(outcome)); err != nil {
		return Outcome{}, err
	}

	logger.Debugf("session %s complete with outcome %s", id, outcome.Kind())

	return outcome, nil
}

// GetSession is the authenticated read path, returning the full session record.
func (m *Manager) GetSession(ctx context.Context, id uuid.UUID, secret string) (*Session, error) {
	session, err := m.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if !secretsEqual(secret, session.Secret) {
		return nil, ErrAuthentication
	}

	return session, nil
}

// GetSessionUnauthenticated is the read path reachable with only the uuid, used by the
// reference endpoint to hand a wallet its request object. The view never contains the
// session secret.
func (m *Manager) GetSessionUnauthenticated(ctx context.Context, id uuid.UUID) (*PublicView, error) {
	view, err := m.store.GetSessionUnauthenticated(ctx, id)
	if errors.Is(err, ErrNotFound) && m.legacy != nil {
		return m.legacy.GetSessionUnauthenticated(ctx, id)
	}

	return view, err
}

// RemoveSession deletes the session record. The lifecycle never deletes sessions on its
// own; this is the hook for an external retention policy.
func (m *Manager) RemoveSession(ctx context.Context, id uuid.UUID, secret string) error {
	session, err := m.loadSession(ctx, id)
	if err != nil {
		return err
	}

	if !secretsEqual(secret, session.Secret) {
		return ErrAuthentication
	}

	return m.storeFor(ctx, id).RemoveSession(ctx, id)
}

func (m *Manager) loadSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := m.store.GetSession(ctx, id)
	if errors.Is(err, ErrNotFound) && m.legacy != nil {
		return m.legacy.GetSession(ctx, id)
	}

	return session, err
}

// storeFor returns the store holding the given session, preferring the primary.
func (m *Manager) storeFor(ctx context.Context, id uuid.UUID) SessionStore {
	if m.legacy == nil {
		return m.store
	}

	if _, err := m.store.GetSession(ctx, id); errors.Is(err, ErrNotFound) {
		return m.legacy
	}

	return m.store
}

func (m *Manager) updateSessionStatus(ctx context.Context, session *Session, id uuid.UUID,
	status Status, opts ...UpdateOption) error {
	if err := m.storeFor(ctx, id).UpdateStatus(ctx, id, status, opts...); err != nil {
		return fmt.Errorf("update session %s status: %w", id, err)
	}

	session.Status = status

	return nil
}

// buildRequestObject binds the caller's request parameters to a fresh nonce and this
// verifier's submission endpoint, then signs the result when a signer is configured.
func (m *Manager) buildRequestObject(ctx context.Context, session *Session,
	request json.RawMessage, nonce string) (json.RawMessage, error) {
	var params map[string]json.RawMessage

	if err := json.Unmarshal(request, &params); err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("request is not an object: %s", err.Error())}
	}

	nonceJSON, err := json.Marshal(nonce)
	if err != nil {
		return nil, fmt.Errorf("marshal nonce: %w", err)
	}

	responseURI, err := json.Marshal(m.cfg.SubmissionURL().String())
	if err != nil {
		return nil, fmt.Errorf("marshal response uri: %w", err)
	}

	params["nonce"] = nonceJSON
	params["response_uri"] = responseURI

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal request object: %w", err)
	}

	session.Nonce = nonce

	if m.signer == nil {
		return payload, nil
	}

	signed, err := m.signer.SignRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(signed)
}
