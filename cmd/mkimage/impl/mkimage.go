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

// Package impl is the implementation of the image packer.
package impl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/header"
	bnote "github.com/google/bootchain/internal/note"
	"github.com/google/bootchain/internal/partition"
	"github.com/google/bootchain/internal/strategy"
	"github.com/google/bootchain/internal/verify"
	"golang.org/x/mod/sumdb/note"
)

// sectorSize is the granularity of partition tables.
const sectorSize = 512

// MkImageOpts encapsulates image packer parameters.
type MkImageOpts struct {
	PayloadPath string
	OutputPath  string

	Name       string
	Kind       string
	LoadAddr   uint64
	EntryPoint uint64
	Magic      uint32

	LittleEndian    bool
	ChecksumPayload bool
	// BlockSize, if non-zero, is the size the payload is padded to a
	// multiple of.
	BlockSize uint64

	// Offset is where the image is placed in the output.
	Offset         uint64
	PartitionTable bool
	// GPT writes a GUID partition table instead of an MBR.
	GPT bool

	Origin     string
	SigningKey string
	Digest     bool
}

// Main packs the payload and writes the result.
func Main(opts MkImageOpts) error {
	if opts.PayloadPath == "" || opts.OutputPath == "" {
		return errors.New("payload and output are required")
	}
	payload, err := os.ReadFile(opts.PayloadPath)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}
	var signer note.Signer
	if opts.SigningKey != "" {
		k, err := os.ReadFile(opts.SigningKey)
		if err != nil {
			return fmt.Errorf("failed to read signing key: %w", err)
		}
		if signer, err = bnote.NewSigner(strings.TrimSpace(string(k))); err != nil {
			return fmt.Errorf("invalid signing key: %w", err)
		}
	}
	out, err := Build(payload, opts, signer)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.OutputPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", opts.OutputPath, err)
	}
	glog.Infof("Wrote %d bytes to %s", len(out), opts.OutputPath)
	return nil
}

// Build returns the packed image, placed at opts.Offset. signer may be nil.
func Build(payload []byte, opts MkImageOpts, signer note.Signer) ([]byte, error) {
	img, err := Pack(payload, opts, signer)
	if err != nil {
		return nil, err
	}
	if !opts.PartitionTable {
		out := make([]byte, opts.Offset+uint64(len(img)))
		copy(out[opts.Offset:], img)
		return out, nil
	}

	if opts.Offset < sectorSize {
		return nil, fmt.Errorf("offset 0x%x overlaps the partition table", opts.Offset)
	}
	size := roundUp(uint64(len(img)), sectorSize)
	if opts.GPT {
		// The backup table and its entries take the last 33 sectors.
		out, err := partition.EncodeGPT([]strategy.PartitionInfo{{Index: 1, StartOffset: opts.Offset, Size: size, Bootable: true}}, opts.Offset+size+33*sectorSize)
		if err != nil {
			return nil, err
		}
		copy(out[opts.Offset:], img)
		return out, nil
	}
	mbr, err := partition.Encode([]strategy.PartitionInfo{{Index: 1, StartOffset: opts.Offset, Size: size, Bootable: true}})
	if err != nil {
		return nil, err
	}
	out := make([]byte, opts.Offset+size)
	copy(out, mbr)
	copy(out[opts.Offset:], img)
	return out, nil
}

// Pack returns the header, padded payload and signature region for payload.
//
// The signature covers the big endian encoding of the header followed by the
// payload. Since the header records the size of the signature region, the
// header is sealed with a predicted size and the image re-signed until a
// signature of exactly that size comes out. Randomised schemes such as ECDSA
// vary in length, so the prediction follows the most common size seen.
func Pack(payload []byte, opts MkImageOpts, signer note.Signer) ([]byte, error) {
	kind, err := api.ParseImageKind(opts.Kind)
	if err != nil {
		return nil, err
	}
	if opts.BlockSize != 0 {
		padded := make([]byte, roundUp(uint64(len(payload)), opts.BlockSize))
		copy(padded, payload)
		payload = padded
	}
	h := api.ImageHeader{
		Magic:      opts.Magic,
		Kind:       kind,
		LoadAddr:   opts.LoadAddr,
		EntryPoint: opts.EntryPoint,
		Name:       opts.Name,
	}
	if h.Magic == 0 {
		h.Magic = api.DefaultMagic
	}
	if h.EntryPoint == 0 {
		h.EntryPoint = h.LoadAddr
	}
	if opts.ChecksumPayload {
		h.Flags |= api.FlagChecksumPayload
	}
	hopts := header.Options{Magic: h.Magic, Granularity: opts.BlockSize}
	if opts.LittleEndian {
		hopts.Order = binary.LittleEndian
	}

	sign := func(image []byte) ([]byte, error) { return nil, nil }
	switch {
	case signer != nil:
		if opts.Origin == "" {
			return nil, errors.New("origin is required to sign images")
		}
		sign = func(image []byte) ([]byte, error) { return verify.Sign(image, opts.Origin, signer) }
	case opts.Digest:
		sign = func(image []byte) ([]byte, error) { return []byte(verify.Digest(image)), nil }
	}

	seen := make(map[int]int)
	size := 0
	for i := 0; i < maxSignAttempts; i++ {
		h.AuthSize = uint32(size)
		sealed, hdr, err := header.Seal(h, payload, hopts)
		if err != nil {
			return nil, fmt.Errorf("failed to seal header: %w", err)
		}
		a, err := sign(append(header.Encode(sealed, nil), payload...))
		if err != nil {
			return nil, fmt.Errorf("failed to sign image: %w", err)
		}
		if len(a) == size {
			img := append(hdr, payload...)
			return append(img, a...), nil
		}
		seen[len(a)]++
		size = mostCommon(seen)
	}
	return nil, fmt.Errorf("no signature matched the sealed size after %d attempts", maxSignAttempts)
}

// maxSignAttempts bounds the number of times an image is re-signed.
const maxSignAttempts = 64

// mostCommon returns the size seen most often, preferring the larger on ties.
func mostCommon(seen map[int]int) int {
	best, n := 0, 0
	for size, c := range seen {
		if c > n || (c == n && size > best) {
			best, n = size, c
		}
	}
	return best
}

func roundUp(n, m uint64) uint64 {
	if r := n % m; r != 0 {
		return n + m - r
	}
	return n
}
