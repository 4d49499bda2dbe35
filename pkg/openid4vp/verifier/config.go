/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Config is the construction-time configuration surface of the verifier. The endpoints
// are path suffixes joined onto BaseURL; their transport exposure is owned by the
// caller's HTTP layer.
type Config struct {
	// BaseURL is the externally reachable root of this verifier.
	BaseURL *url.URL
	// SubmissionEndpoint is where wallets submit their response.
	SubmissionEndpoint string
	// ReferenceEndpoint is where wallets resolve a by-reference request object.
	ReferenceEndpoint string
	// KeyPEM is the PEM encoded signing key for request objects.
	KeyPEM []byte
	// CertChainPEM is the PEM encoded certificate chain bound into signed requests.
	CertChainPEM []byte
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is required")
	}

	if c.BaseURL == nil {
		return errors.New("base url is required")
	}

	if c.SubmissionEndpoint == "" || c.ReferenceEndpoint == "" {
		return errors.New("submission and reference endpoints are required")
	}

	return nil
}

// CertChain parses the configured PEM chain. The first certificate is the signing
// certificate, followed by its issuers.
func (c *Config) CertChain() ([]*x509.Certificate, error) {
	var chain []*x509.Certificate

	rest := c.CertChainPEM

	for {
		var block *pem.Block

		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate chain: %w", err)
		}

		chain = append(chain, cert)
	}

	if len(chain) == 0 {
		return nil, errors.New("certificate chain contains no certificates")
	}

	return chain, nil
}

// SubmissionURL returns the absolute URL wallets submit responses to.
func (c *Config) SubmissionURL() *url.URL {
	return c.join(c.SubmissionEndpoint)
}

// ReferenceURL returns the absolute URL at which the request object of the given
// session can be retrieved without a secret.
func (c *Config) ReferenceURL(id uuid.UUID) *url.URL {
	return c.join(c.ReferenceEndpoint).JoinPath(id.String())
}

func (c *Config) join(endpoint string) *url.URL {
	return c.BaseURL.JoinPath(strings.TrimPrefix(endpoint, "/"))
}
