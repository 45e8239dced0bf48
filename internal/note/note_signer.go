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

package note

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/mod/sumdb/note"
)

const (
	algEd25519         = 1
	algECDSAWithSHA256 = 2
)

var (
	errSignerID     = errors.New("malformed signer id")
	errSignerAlg    = errors.New("unknown signer algorithm")
	errVerifierID   = errors.New("malformed verifier id")
	errVerifierAlg  = errors.New("unknown verifier algorithm")
	errVerifierHash = errors.New("invalid verifier hash")
)

// NewSigner constructs a Signer from an encoded signer key.
//
// Ed25519 keys are handled by note.NewSigner. ECDSA keys, as produced by
// GenerateECDSAKey, hold a PKCS#8 encoded P-256 private key.
func NewSigner(skey string) (note.Signer, error) {
	priv1, rest, _ := strings.Cut(skey, "+")
	priv2, rest, _ := strings.Cut(rest, "+")
	name, rest, _ := strings.Cut(rest, "+")
	hash16, key64, _ := strings.Cut(rest, "+")
	key, err := base64.StdEncoding.DecodeString(key64)
	if priv1 != "PRIVATE" || priv2 != "KEY" || len(hash16) != 8 || err != nil || !isValidName(name) || len(key) == 0 {
		return nil, errSignerID
	}

	switch key[0] {
	case algEd25519:
		return note.NewSigner(skey)
	case algECDSAWithSHA256:
		k, err := x509.ParsePKCS8PrivateKey(key[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errSignerID, err)
		}
		ek, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %T isn't an ECDSA key", errSignerID, k)
		}
		return NewECDSASigner(name, ek)
	}
	return nil, errSignerAlg
}

// NewECDSASigner returns a Signer producing ASN.1 ECDSA signatures over the
// SHA-256 of the note text.
func NewECDSASigner(name string, key *ecdsa.PrivateKey) (note.Signer, error) {
	if !isValidName(name) {
		return nil, errSignerID
	}
	spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &signer{
		name: name,
		hash: keyHash(name, append([]byte{algECDSAWithSHA256}, spki...)),
		sign: func(msg []byte) ([]byte, error) {
			dgst := sha256.Sum256(msg)
			return ecdsa.SignASN1(rand.Reader, key, dgst[:])
		},
	}, nil
}

// GenerateECDSAKey generates a P-256 key pair and returns its encodings.
func GenerateECDSAKey(r io.Reader, name string) (skey, vkey string, err error) {
	if !isValidName(name) {
		return "", "", errSignerID
	}
	k, err := ecdsa.GenerateKey(elliptic.P256(), r)
	if err != nil {
		return "", "", err
	}
	vkey, err = ECDSAVerifierKey(name, &k.PublicKey)
	if err != nil {
		return "", "", err
	}
	der, err := x509.MarshalPKCS8PrivateKey(k)
	if err != nil {
		return "", "", err
	}
	spki, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		return "", "", err
	}
	h := keyHash(name, append([]byte{algECDSAWithSHA256}, spki...))
	skey = fmt.Sprintf("PRIVATE+KEY+%s+%08x+%s", name, h, base64.StdEncoding.EncodeToString(append([]byte{algECDSAWithSHA256}, der...)))
	return skey, vkey, nil
}

// signer is a trivial Signer implementation.
type signer struct {
	name string
	hash uint32
	sign func([]byte) ([]byte, error)
}

func (s *signer) Name() string                    { return s.name }
func (s *signer) KeyHash() uint32                 { return s.hash }
func (s *signer) Sign(msg []byte) ([]byte, error) { return s.sign(msg) }

// isValidName reports whether name is valid.
// It must be non-empty and not have any Unicode spaces or pluses.
func isValidName(name string) bool {
	return name != "" && utf8.ValidString(name) && strings.IndexFunc(name, unicode.IsSpace) < 0 && !strings.Contains(name, "+")
}

func keyHash(name string, key []byte) uint32 {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte("\n"))
	h.Write(key)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint32(sum)
}
