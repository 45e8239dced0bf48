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

// Package header parses and validates the fixed layout image header which
// precedes every firmware image on a boot medium.
//
// The header is 64 bytes long:
//
//	0   magic        u32
//	4   version      u8
//	5   kind         u8
//	6   flags        u8
//	7   reserved     u8
//	8   payload_size u64
//	16  load_addr    u64
//	24  entry_point  u64
//	32  checksum     u64  (header sum << 32 | payload sum)
//	40  auth_size    u32
//	44  name         [20]byte, NUL padded
//
// Multi-byte fields use the byte order of the active strategy.
//
// The upper half of the checksum field covers the header (with the checksum
// field zeroed), the lower half covers the payload when FlagChecksumPayload is
// set and must be zero otherwise. Both halves use the engine selected by the
// image's declared kind.
package header

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/checksum"
)

const (
	offMagic       = 0
	offVersion     = 4
	offKind        = 5
	offFlags       = 6
	offPayloadSize = 8
	offLoadAddr    = 16
	offEntryPoint  = 24
	offChecksum    = 32
	offAuthSize    = 40
	offName        = 44
)

// Options control how a header is validated.
type Options struct {
	// Magic is the expected value of the first field.
	Magic uint32
	// Order is the byte order of multi-byte fields. Defaults to big endian.
	Order binary.ByteOrder
	// Granularity is the minimum transfer size of the medium; the payload
	// size must be a multiple of it. Zero or one disables the check.
	Granularity uint64
	// Checksums selects the checksum engine by declared kind. Defaults to
	// checksum.DefaultTable().
	Checksums checksum.Table
}

func (o Options) order() binary.ByteOrder {
	if o.Order == nil {
		return binary.BigEndian
	}
	return o.Order
}

func (o Options) engine(k api.ImageKind) (checksum.Engine, error) {
	t := o.Checksums
	if t == nil {
		t = checksum.DefaultTable()
	}
	e, ok := t.ForKind(k)
	if !ok {
		return nil, fmt.Errorf("no checksum engine for image kind %s: %w", k, api.ErrUnsupportedImage)
	}
	return e, nil
}

// Parse decodes and validates the header at the start of b.
//
// Validation follows the classic order: size, magic, a zero payload size,
// version and kind, the remaining size checks, then the header checksum. The payload checksum, if any, can only be checked
// once the payload has been read, see VerifyPayload.
func Parse(b []byte, opts Options) (api.ImageHeader, error) {
	if len(b) < api.HeaderSize {
		return api.ImageHeader{}, fmt.Errorf("have %d bytes, need %d: %w", len(b), api.HeaderSize, api.ErrTruncated)
	}
	b = b[:api.HeaderSize]
	o := opts.order()

	h := api.ImageHeader{
		Magic:       o.Uint32(b[offMagic:]),
		Version:     b[offVersion],
		Kind:        api.ImageKind(b[offKind]),
		Flags:       b[offFlags],
		PayloadSize: o.Uint64(b[offPayloadSize:]),
		LoadAddr:    o.Uint64(b[offLoadAddr:]),
		EntryPoint:  o.Uint64(b[offEntryPoint:]),
		Checksum:    o.Uint64(b[offChecksum:]),
		AuthSize:    o.Uint32(b[offAuthSize:]),
		Name:        string(bytes.TrimRight(b[offName:api.HeaderSize], "\x00")),
	}

	if h.Magic != opts.Magic {
		return api.ImageHeader{}, fmt.Errorf("magic 0x%08x, want 0x%08x: %w", h.Magic, opts.Magic, api.ErrBadMagic)
	}
	if h.PayloadSize == 0 {
		return api.ImageHeader{}, fmt.Errorf("zero payload size: %w", api.ErrTruncated)
	}
	if h.Version != api.HeaderVersion {
		return api.ImageHeader{}, fmt.Errorf("header version %d: %w", h.Version, api.ErrUnsupportedImage)
	}
	e, err := opts.engine(h.Kind)
	if err != nil {
		return api.ImageHeader{}, err
	}
	if err := checkSizes(h, opts.Granularity); err != nil {
		return api.ImageHeader{}, err
	}
	if h.Flags&api.FlagChecksumPayload == 0 && uint32(h.Checksum) != 0 {
		return api.ImageHeader{}, fmt.Errorf("payload checksum set without payload flag: %w", api.ErrChecksumMismatch)
	}

	zeroed := make([]byte, api.HeaderSize)
	copy(zeroed, b)
	clear(zeroed[offChecksum : offChecksum+8])
	if got, want := uint32(e.Compute(zeroed)), uint32(h.Checksum>>32); got != want {
		return api.ImageHeader{}, fmt.Errorf("%s header checksum 0x%08x, header claims 0x%08x: %w", e.Name(), got, want, api.ErrChecksumMismatch)
	}
	return h, nil
}

// checkSizes validates the size fields of h; arithmetic is overflow checked.
func checkSizes(h api.ImageHeader, granularity uint64) error {
	if h.PayloadSize == 0 {
		return fmt.Errorf("zero payload size: %w", api.ErrTruncated)
	}
	if granularity > 1 && h.PayloadSize%granularity != 0 {
		return fmt.Errorf("payload size %d not a multiple of %d: %w", h.PayloadSize, granularity, api.ErrMisaligned)
	}
	if _, carry := bits.Add64(h.LoadAddr, h.PayloadSize, 0); carry != 0 {
		return fmt.Errorf("load address 0x%x + size %d: %w", h.LoadAddr, h.PayloadSize, api.ErrOverflow)
	}
	if _, err := ImageSize(h); err != nil {
		return err
	}
	return nil
}

// ImageSize returns the number of bytes the whole image (header, payload and
// signature region) occupies on the medium.
func ImageSize(h api.ImageHeader) (uint64, error) {
	s, c1 := bits.Add64(api.HeaderSize, h.PayloadSize, 0)
	s, c2 := bits.Add64(s, uint64(h.AuthSize), 0)
	if c1|c2 != 0 {
		return 0, fmt.Errorf("image size: %w", api.ErrOverflow)
	}
	return s, nil
}

// VerifyPayload checks the payload half of the checksum for images which
// carry one. It's a no-op for images without FlagChecksumPayload.
func VerifyPayload(h api.ImageHeader, payload []byte, opts Options) error {
	if h.Flags&api.FlagChecksumPayload == 0 {
		return nil
	}
	if uint64(len(payload)) != h.PayloadSize {
		return fmt.Errorf("have %d payload bytes, header claims %d: %w", len(payload), h.PayloadSize, api.ErrTruncated)
	}
	e, err := opts.engine(h.Kind)
	if err != nil {
		return err
	}
	if got, want := uint32(e.Compute(payload)), uint32(h.Checksum); got != want {
		return fmt.Errorf("%s payload checksum 0x%08x, header claims 0x%08x: %w", e.Name(), got, want, api.ErrChecksumMismatch)
	}
	return nil
}

// Encode serialises h exactly as it's stored on the medium.
func Encode(h api.ImageHeader, order binary.ByteOrder) []byte {
	if order == nil {
		order = binary.BigEndian
	}
	b := make([]byte, api.HeaderSize)
	order.PutUint32(b[offMagic:], h.Magic)
	b[offVersion] = h.Version
	b[offKind] = byte(h.Kind)
	b[offFlags] = h.Flags
	order.PutUint64(b[offPayloadSize:], h.PayloadSize)
	order.PutUint64(b[offLoadAddr:], h.LoadAddr)
	order.PutUint64(b[offEntryPoint:], h.EntryPoint)
	order.PutUint64(b[offChecksum:], h.Checksum)
	order.PutUint32(b[offAuthSize:], h.AuthSize)
	copy(b[offName:], h.Name)
	return b
}

// Seal fills in the version and checksum of h for the given payload and
// returns the completed header along with its encoding.
// The payload checksum is included when h.Flags has FlagChecksumPayload.
func Seal(h api.ImageHeader, payload []byte, opts Options) (api.ImageHeader, []byte, error) {
	if len(h.Name) > api.NameSize {
		return api.ImageHeader{}, nil, fmt.Errorf("name %q longer than %d bytes", h.Name, api.NameSize)
	}
	e, err := opts.engine(h.Kind)
	if err != nil {
		return api.ImageHeader{}, nil, err
	}
	h.Version = api.HeaderVersion
	h.PayloadSize = uint64(len(payload))
	h.Checksum = 0
	if err := checkSizes(h, opts.Granularity); err != nil {
		return api.ImageHeader{}, nil, err
	}
	var psum uint32
	if h.Flags&api.FlagChecksumPayload != 0 {
		psum = uint32(e.Compute(payload))
	}
	hsum := uint32(e.Compute(Encode(h, opts.order())))
	h.Checksum = uint64(hsum)<<32 | uint64(psum)
	return h, Encode(h, opts.order()), nil
}
