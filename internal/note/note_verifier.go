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

// Package note provides note signers and verifiers for ECDSA P-256 keys, for
// boards whose image signing keys live in hardware which can't do Ed25519.
package note

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/sumdb/note"
)

// ecdsaVerifier is a note-compatible verifier for ECDSA signatures.
type ecdsaVerifier struct {
	name    string
	keyHash uint32
	v       func(msg, sig []byte) bool
}

// Name returns the name associated with the key this verifier is based on.
func (e *ecdsaVerifier) Name() string {
	return e.name
}

// KeyHash returns a truncated hash of the key this verifier is based on.
func (e *ecdsaVerifier) KeyHash() uint32 {
	return e.keyHash
}

// Verify checks that the provided sig is valid over msg for the key this verifier is based on.
func (e *ecdsaVerifier) Verify(msg, sig []byte) bool {
	return e.v(msg, sig)
}

// ECDSAVerifierKey returns the encoded verifier key for pub.
func ECDSAVerifierKey(name string, pub *ecdsa.PublicKey) (string, error) {
	if !isValidName(name) {
		return "", errVerifierID
	}
	spki, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	key := append([]byte{algECDSAWithSHA256}, spki...)
	return fmt.Sprintf("%s+%08x+%s", name, keyHash(name, key), base64.StdEncoding.EncodeToString(key)), nil
}

// NewVerifier constructs a Verifier from an encoded verifier key.
// Ed25519 keys are handled by note.NewVerifier.
func NewVerifier(vkey string) (note.Verifier, error) {
	name, rest, _ := strings.Cut(vkey, "+")
	hash16, key64, _ := strings.Cut(rest, "+")
	key, err := base64.StdEncoding.DecodeString(key64)
	if len(hash16) != 8 || err != nil || !isValidName(name) || len(key) == 0 {
		return nil, errVerifierID
	}
	switch key[0] {
	case algEd25519:
		return note.NewVerifier(vkey)
	case algECDSAWithSHA256:
		return newECDSAVerifier(name, hash16, key)
	}
	return nil, errVerifierAlg
}

func newECDSAVerifier(name, hash16 string, key []byte) (note.Verifier, error) {
	h, err := strconv.ParseUint(hash16, 16, 32)
	if err != nil {
		return nil, errVerifierID
	}
	if uint32(h) != keyHash(name, key) {
		return nil, errVerifierHash
	}
	k, err := x509.ParsePKIXPublicKey(key[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errVerifierID, err)
	}
	pubK, ok := k.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T isn't an ECDSA key", errVerifierID, k)
	}
	return &ecdsaVerifier{
		name: name,
		v: func(msg, sig []byte) bool {
			dgst := sha256.Sum256(msg)
			return ecdsa.VerifyASN1(pubK, dgst[:], sig)
		},
		keyHash: uint32(h),
	}, nil
}
