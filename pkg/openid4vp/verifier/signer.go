/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"
)

// requestObjectType is the JOSE typ header of a signed authorization request object.
const requestObjectType = "oauth-authz-req+jwt"

// RequestSigner is the signing capability used to produce self-contained signed request
// objects. The core only orchestrates when signing happens; how the signature is
// produced (local key, HSM, remote service) is the implementer's concern.
type RequestSigner interface {
	// Alg returns the JWS algorithm the signer produces.
	Alg() string
	// SignRequest signs the request payload and returns its compact serialization.
	SignRequest(ctx context.Context, payload []byte) (string, error)
}

// JWSRequestSigner signs request objects as compact JWS with the configured certificate
// chain bound into the protected header.
type JWSRequestSigner struct {
	alg    jose.SignatureAlgorithm
	signer jose.Signer
}

// NewJWSRequestSigner builds the default signing capability from the config's PEM key
// material and certificate chain.
func NewJWSRequestSigner(cfg *Config) (*JWSRequestSigner, error) {
	key, err := parseSigningKey(cfg.KeyPEM)
	if err != nil {
		return nil, &CryptoError{Err: err}
	}

	alg, err := algorithmForKey(key)
	if err != nil {
		return nil, &CryptoError{Err: err}
	}

	chain, err := cfg.CertChain()
	if err != nil {
		return nil, &CryptoError{Err: err}
	}

	x5c := make([]string, len(chain))
	for i, cert := range chain {
		x5c[i] = base64.StdEncoding.EncodeToString(cert.Raw)
	}

	opts := (&jose.SignerOptions{}).WithType(requestObjectType).WithHeader("x5c", x5c)

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: alg, Key: key}, opts)
	if err != nil {
		return nil, &CryptoError{Err: fmt.Errorf("create request signer: %w", err)}
	}

	return &JWSRequestSigner{alg: alg, signer: signer}, nil
}

// Alg returns the JWS algorithm of the configured key.
func (s *JWSRequestSigner) Alg() string {
	return string(s.alg)
}

// SignRequest signs the payload and returns the compact JWS.
func (s *JWSRequestSigner) SignRequest(_ context.Context, payload []byte) (string, error) {
	jws, err := s.signer.Sign(payload)
	if err != nil {
		return "", &CryptoError{Err: fmt.Errorf("sign request object: %w", err)}
	}

	compact, err := jws.CompactSerialize()
	if err != nil {
		return "", &CryptoError{Err: fmt.Errorf("serialize request object: %w", err)}
	}

	return compact, nil
}

func parseSigningKey(keyPEM []byte) (interface{}, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.New("signing key is not PEM encoded")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	return nil, errors.New("signing key is not a supported PKCS8, SEC1 or PKCS1 key")
}

func algorithmForKey(key interface{}) (jose.SignatureAlgorithm, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		switch k.Curve {
		case elliptic.P256():
			return jose.ES256, nil
		case elliptic.P384():
			return jose.ES384, nil
		case elliptic.P521():
			return jose.ES512, nil
		}

		return "", fmt.Errorf("unsupported curve %s", k.Curve.Params().Name)
	case ed25519.PrivateKey:
		return jose.EdDSA, nil
	case *rsa.PrivateKey:
		return jose.RS256, nil
	}

	return "", fmt.Errorf("unsupported signing key type %T", key)
}
