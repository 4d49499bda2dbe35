/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package opencred provides the verifier-side core of an OpenID4VP digital-credential
// presentation exchange.
//
// Packages for end developer usage
//
// pkg/openid4vp/verifier: The session lifecycle engine. Create a Manager with your
// configuration and a SessionStore, then drive the exchange with CreateNewSession,
// InitiateRequest and SubmitResponse.
// Reference: https://pkg.go.dev/github.com/spruceid/opencred-dc-api/pkg/openid4vp/verifier
//
// pkg/store/session: The reference SessionStore implementation over an aries
// spi/storage provider, plus a retry decorator for flaky backends.
// Reference: https://pkg.go.dev/github.com/spruceid/opencred-dc-api/pkg/store/session
//
// Basic workflow
//
//	1) Build a verifier.Config with your base URL, endpoints and key material.
//	2) Open a session store over the storage provider of your choice.
//	3) Create a verifier.Manager with New, injecting the store.
//	4) Wire the Manager's operations into your HTTP layer.
package opencred
