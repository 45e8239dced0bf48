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

// Package testonly builds images for tests.
package testonly

import (
	"testing"

	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/header"
)

// Payload returns n bytes of deterministic non-zero data.
func Payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + 7)
	}
	return b
}

// Image returns a sealed header for h followed by payload and auth.
// h.AuthSize is set from auth.
func Image(t *testing.T, h api.ImageHeader, payload, auth []byte, opts header.Options) []byte {
	t.Helper()
	if h.Magic == 0 {
		h.Magic = api.DefaultMagic
	}
	if h.Kind == api.ImageUnknown {
		h.Kind = api.ImageLoader
	}
	h.AuthSize = uint32(len(auth))
	_, hdr, err := header.Seal(h, payload, opts)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	img := append(hdr, payload...)
	return append(img, auth...)
}

// At returns a buffer of size bytes with img copied at offset.
func At(size, offset int, img []byte) []byte {
	b := make([]byte, size)
	copy(b[offset:], img)
	return b
}
