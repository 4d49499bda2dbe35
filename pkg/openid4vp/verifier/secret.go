/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// 32 bytes = 256 bits of entropy.
const secretSize = 32

// newSecret generates a session secret from a cryptographically secure random source.
func newSecret() (string, error) {
	b := make([]byte, secretSize)

	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// secretsEqual compares two secrets in constant time regardless of result, so an
// attacker probing uuid/secret pairs learns nothing from timing.
func secretsEqual(provided, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) == 1
}
