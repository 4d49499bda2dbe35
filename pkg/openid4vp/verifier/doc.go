/*
Copyright SpruceID. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verifier implements the relying-party side of an OpenID4VP presentation
// exchange: the session lifecycle state machine, the session-secret authentication
// scheme, the pluggable session store contract and the request/response orchestration
// tying them together.
//
// The HTTP layer exposing the submission and reference endpoints, the concrete wire
// schema of the presentation request and response, and persistence backends are all
// external collaborators. The Manager only decides when signing, validation and
// persistence happen, through the injected RequestSigner, ResponseValidator and
// SessionStore capabilities.
package verifier
