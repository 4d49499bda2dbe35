/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v3"
)

// ResponseValidator structurally and cryptographically validates a wallet response and
// always produces an outcome. Protocol failures are captured as Failure or Error
// outcomes rather than raised, so the exchange reaches a well-defined terminal state
// even when it failed.
type ResponseValidator interface {
	Validate(ctx context.Context, session *Session, response json.RawMessage) Outcome
}

// JWSResponseValidator verifies that the response is a compact JWS signed by the
// verifier's configured certificate chain and that it is bound to the session nonce.
type JWSResponseValidator struct {
	key interface{}
}

// NewJWSResponseValidator builds the default validator from the config's certificate
// chain. The leaf certificate's key is the expected response signer.
func NewJWSResponseValidator(cfg *Config) (*JWSResponseValidator, error) {
	chain, err := cfg.CertChain()
	if err != nil {
		return nil, &CryptoError{Err: err}
	}

	return &JWSResponseValidator{key: chain[0].PublicKey}, nil
}

// Validate implements ResponseValidator.
func (v *JWSResponseValidator) Validate(_ context.Context, session *Session, response json.RawMessage) Outcome {
	compact := string(response)

	// The response may arrive as a JSON string or as the bare compact serialization.
	var asString string
	if err := json.Unmarshal(response, &asString); err == nil {
		compact = asString
	}

	jws, err := jose.ParseSigned(compact)
	if err != nil {
		return ErrorOutcome(fmt.Sprintf("response is not a compact JWS: %s", err.Error()))
	}

	payload, err := jws.Verify(v.key)
	if err != nil {
		return FailureOutcome("response signature verification failed")
	}

	var claims struct {
		Nonce string `json:"nonce"`
	}

	if err := json.Unmarshal(payload, &claims); err != nil {
		return ErrorOutcome(fmt.Sprintf("response payload is not an object: %s", err.Error()))
	}

	if session.Nonce != "" && claims.Nonce != session.Nonce {
		return FailureOutcome("response is not bound to the session nonce")
	}

	return SuccessOutcome(payload)
}
