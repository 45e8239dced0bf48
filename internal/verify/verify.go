// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package verify checks the signature region which follows an image payload.
//
// Signatures are signed notes whose text is:
//
//	<origin>
//	<hex SHA-256 of header and payload>
package verify

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/bootchain/api"
	bnote "github.com/google/bootchain/internal/note"
	"golang.org/x/mod/sumdb/note"
)

// Digest returns the hex SHA-256 of image.
func Digest(image []byte) string {
	h := sha256.Sum256(image)
	return hex.EncodeToString(h[:])
}

// NoteVerifier implements api.SignatureVerifier for signed notes.
type NoteVerifier struct {
	origin    string
	verifiers note.Verifiers
}

// NewNoteVerifier returns a verifier accepting notes for origin signed by any
// of the given Ed25519 or ECDSA verifier keys.
func NewNoteVerifier(origin string, vkeys ...string) (*NoteVerifier, error) {
	if len(vkeys) == 0 {
		return nil, fmt.Errorf("no verifier keys")
	}
	vs := make([]note.Verifier, 0, len(vkeys))
	for _, k := range vkeys {
		v, err := bnote.NewVerifier(k)
		if err != nil {
			return nil, fmt.Errorf("invalid verifier key %q: %w", k, err)
		}
		vs = append(vs, v)
	}
	return &NoteVerifier{origin: origin, verifiers: note.VerifierList(vs...)}, nil
}

// Verify implements api.SignatureVerifier.
func (v *NoteVerifier) Verify(image, auth []byte) error {
	if len(auth) == 0 {
		return fmt.Errorf("image is unsigned: %w", api.ErrAuthenticationFailed)
	}
	n, err := note.Open(auth, v.verifiers)
	if err != nil {
		return fmt.Errorf("%v: %w", err, api.ErrAuthenticationFailed)
	}
	lines := strings.Split(strings.TrimSuffix(n.Text, "\n"), "\n")
	if len(lines) != 2 {
		return fmt.Errorf("signed note has %d lines, want 2: %w", len(lines), api.ErrAuthenticationFailed)
	}
	if lines[0] != v.origin {
		return fmt.Errorf("signed note for %q, want %q: %w", lines[0], v.origin, api.ErrAuthenticationFailed)
	}
	if lines[1] != Digest(image) {
		return fmt.Errorf("image digest doesn't match signed note: %w", api.ErrAuthenticationFailed)
	}
	return nil
}

// Sign returns the signature region for image.
func Sign(image []byte, origin string, signers ...note.Signer) ([]byte, error) {
	return note.Sign(&note.Note{Text: fmt.Sprintf("%s\n%s\n", origin, Digest(image))}, signers...)
}

// DigestVerifier implements api.SignatureVerifier for images whose signature
// region is just the hex SHA-256 of the image. It only protects against
// corruption.
type DigestVerifier struct{}

// Verify implements api.SignatureVerifier.
func (DigestVerifier) Verify(image, auth []byte) error {
	if !bytes.Equal(bytes.TrimSpace(auth), []byte(Digest(image))) {
		return fmt.Errorf("image digest mismatch: %w", api.ErrAuthenticationFailed)
	}
	return nil
}
