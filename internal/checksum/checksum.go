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

// Package checksum provides the integrity checks used to validate image
// headers and payloads.
//
// All engines operate over the concatenation of the slices they're given, so
// callers can checksum a header and its payload without copying them into a
// single buffer.
package checksum

import (
	"crypto/sha256"
	"encoding/binary"
	"hash/crc32"

	"github.com/google/bootchain/api"
)

// Engine computes and verifies a checksum.
type Engine interface {
	// Name returns a short name for the algorithm, used in logs.
	Name() string
	// Compute returns the checksum of the concatenation of data.
	Compute(data ...[]byte) uint64
	// Verify reports whether want is the checksum of the concatenation of data.
	Verify(want uint64, data ...[]byte) bool
}

// Table maps a declared image kind to the engine which checks it.
type Table map[api.ImageKind]Engine

// DefaultTable returns the engine selection used unless a board overrides it.
func DefaultTable() Table {
	return Table{
		api.ImageLoader: CRC32{},
		api.ImageKernel: WordSum{Order: binary.BigEndian},
		api.ImageApplet: CRC16{},
		api.ImageSigned: Delegated{Func: SHA256Prefix},
	}
}

// ForKind returns the engine for the given kind.
func (t Table) ForKind(k api.ImageKind) (Engine, bool) {
	e, ok := t[k]
	return e, ok
}

// WordSum is the two's complement of the 32-bit sum of all words.
// A trailing partial word is zero padded.
type WordSum struct {
	Order binary.ByteOrder
}

// Name implements Engine.
func (WordSum) Name() string { return "wordsum32" }

// Compute implements Engine.
func (w WordSum) Compute(data ...[]byte) uint64 {
	order := w.Order
	if order == nil {
		order = binary.BigEndian
	}
	var sum uint32
	var word [4]byte
	n := 0
	for _, d := range data {
		for _, b := range d {
			word[n] = b
			n++
			if n == len(word) {
				sum += order.Uint32(word[:])
				n = 0
			}
		}
	}
	if n > 0 {
		for i := n; i < len(word); i++ {
			word[i] = 0
		}
		sum += order.Uint32(word[:])
	}
	return uint64(^sum + 1)
}

// Verify implements Engine.
func (w WordSum) Verify(want uint64, data ...[]byte) bool {
	return w.Compute(data...) == want
}

const (
	crc16Polynomial = 0x1021
	crc16Initial    = 0xFFFF
)

// CRC16 is CRC-16/CCITT (polynomial 0x1021, initial value 0xFFFF, no final XOR).
type CRC16 struct{}

// Name implements Engine.
func (CRC16) Name() string { return "crc16-ccitt" }

// Compute implements Engine.
func (CRC16) Compute(data ...[]byte) uint64 {
	crc := uint16(crc16Initial)
	for _, d := range data {
		for _, b := range d {
			crc ^= uint16(b) << 8
			for i := 0; i < 8; i++ {
				if crc&0x8000 != 0 {
					crc = (crc << 1) ^ crc16Polynomial
				} else {
					crc <<= 1
				}
			}
		}
	}
	return uint64(crc)
}

// Verify implements Engine.
func (c CRC16) Verify(want uint64, data ...[]byte) bool {
	return c.Compute(data...) == want
}

// CRC32 is the IEEE CRC-32 used by legacy loader images.
type CRC32 struct{}

// Name implements Engine.
func (CRC32) Name() string { return "crc32" }

// Compute implements Engine.
func (CRC32) Compute(data ...[]byte) uint64 {
	var crc uint32
	for _, d := range data {
		crc = crc32.Update(crc, crc32.IEEETable, d)
	}
	return uint64(crc)
}

// Verify implements Engine.
func (c CRC32) Verify(want uint64, data ...[]byte) bool {
	return c.Compute(data...) == want
}

// Delegated hands the computation to an external digest function.
type Delegated struct {
	Func func(data ...[]byte) uint64
}

// Name implements Engine.
func (Delegated) Name() string { return "delegated" }

// Compute implements Engine.
func (d Delegated) Compute(data ...[]byte) uint64 {
	if d.Func == nil {
		return 0
	}
	return d.Func(data...)
}

// Verify implements Engine.
func (d Delegated) Verify(want uint64, data ...[]byte) bool {
	if d.Func == nil {
		return false
	}
	return d.Func(data...) == want
}

// SHA256Prefix returns the first 8 bytes, big endian, of the SHA-256 of data.
func SHA256Prefix(data ...[]byte) uint64 {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}
