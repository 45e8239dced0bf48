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

// Package strategy implements the ways a firmware image can be located on a
// boot medium.
//
// Each Strategy is tried by the orchestrator in three steps: Probe checks the
// medium supports the layout at all, LoadHeader reads and validates the image
// header, and LoadPayload stages the payload and signature region. Strategies
// never write into the caller's destination buffer.
package strategy

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/header"
	"github.com/google/bootchain/internal/poll"
	"github.com/google/bootchain/internal/storage"
)

// Strategy locates an image on a medium using one particular layout.
type Strategy interface {
	// Kind identifies the strategy in the ledger and handoff record.
	Kind() api.StrategyKind

	// Probe checks the medium is ready and supports this strategy.
	Probe(ctx context.Context, lc *LoadContext) error

	// LoadHeader reads and validates the image header. On success lc.Spec
	// points at the start of the payload.
	LoadHeader(ctx context.Context, lc *LoadContext) (api.ImageHeader, error)

	// LoadPayload reads exactly h.PayloadSize bytes of payload into dst,
	// checks it against the payload checksum in h using the same checksum
	// table LoadHeader used, and returns the signature region which follows
	// it.
	LoadPayload(ctx context.Context, lc *LoadContext, h api.ImageHeader, dst []byte) ([]byte, error)
}

// LoadContext carries the state of a single strategy attempt.
// A fresh LoadContext is used for every attempt.
type LoadContext struct {
	Device api.BootDevice
	// Port is the medium the strategy reads from. Probe may narrow it, e.g.
	// to a partition.
	Port storage.ReadPort
	// Spec records where the image is being read from.
	Spec api.LoadSpec
	// Poll bounds the wait for the medium to become ready.
	Poll poll.Policy

	// Params and ParamsAddr are set by strategies which produce an OS
	// handoff, and describe the parameter blob to pass to the kernel.
	Params     []byte
	ParamsAddr uint64

	// staged holds image bytes read ahead of LoadPayload.
	staged []byte
}

// NewLoadContext returns a LoadContext for a single attempt on port.
func NewLoadContext(d api.BootDevice, port storage.ReadPort, p poll.Policy) *LoadContext {
	return &LoadContext{
		Device: d,
		Port:   port,
		Spec:   api.LoadSpec{Device: d},
		Poll:   p,
	}
}

// PartitionInfo describes a partition table entry.
type PartitionInfo struct {
	// Index is the 1-based partition number.
	Index       uint32
	StartOffset uint64
	Size        uint64
	Bootable    bool
}

// PartitionTableProvider finds the boot partition on a medium.
type PartitionTableProvider interface {
	// FindBootPartition returns the partition the loader should boot from.
	// It returns an error wrapping api.ErrNoBootablePartition if there's
	// none.
	FindBootPartition(p storage.ReadPort) (PartitionInfo, error)
}

// FilesystemProvider reads files from a filesystem on a medium.
type FilesystemProvider interface {
	// ReadFile returns the contents of the file at path. It returns an error
	// wrapping api.ErrFileNotFound if there's no such file.
	ReadFile(p storage.ReadPort, path string) ([]byte, error)
}

// waitReady blocks, within the bounds of lc.Poll, until the medium reports
// that it's ready. Media which don't report readiness are assumed ready.
func waitReady(ctx context.Context, lc *LoadContext) error {
	rc, ok := lc.Port.(storage.ReadyChecker)
	if !ok {
		return nil
	}
	if err := poll.Until(ctx, lc.Poll, rc.Ready); err != nil {
		return fmt.Errorf("%s not ready: %w", lc.Device, err)
	}
	return nil
}

// headerOptions fills in the transfer granularity of the medium if opts
// doesn't set one.
func headerOptions(opts header.Options, port storage.ReadPort) header.Options {
	if opts.Magic == 0 {
		opts.Magic = api.DefaultMagic
	}
	if opts.Granularity == 0 {
		opts.Granularity = port.BlockSize()
	}
	return opts
}

// checkFits returns an error wrapping api.ErrTruncated if the image
// described by h, starting at off, extends past the end of port.
func checkFits(port storage.ReadPort, off uint64, h api.ImageHeader) error {
	s, ok := port.(storage.Sizer)
	if !ok {
		return nil
	}
	size, err := header.ImageSize(h)
	if err != nil {
		return err
	}
	if end := s.Size(); off > end || size > end-off {
		return fmt.Errorf("image of %d bytes at 0x%x overruns %d byte region: %w", size, off, end, api.ErrTruncated)
	}
	return nil
}

// rawImage reads an image stored contiguously at a byte offset of a port:
// header, payload, then signature region.
type rawImage struct {
	offset uint64
	opts   header.Options
}

func (r rawImage) loadHeader(lc *LoadContext) (api.ImageHeader, error) {
	lc.Spec.ByteOffset = r.offset
	b := make([]byte, api.HeaderSize)
	if _, err := storage.ReadAligned(lc.Port, r.offset, b); err != nil {
		return api.ImageHeader{}, fmt.Errorf("reading header at 0x%x: %w", r.offset, err)
	}
	h, err := header.Parse(b, headerOptions(r.opts, lc.Port))
	if err != nil {
		return api.ImageHeader{}, err
	}
	if err := checkFits(lc.Port, r.offset, h); err != nil {
		return api.ImageHeader{}, err
	}
	lc.Spec.ByteOffset = r.offset + api.HeaderSize
	glog.V(1).Infof("%s: found %v", lc.Spec, h)
	return h, nil
}

func (r rawImage) loadPayload(lc *LoadContext, h api.ImageHeader, dst []byte) ([]byte, error) {
	if uint64(len(dst)) < h.PayloadSize {
		return nil, fmt.Errorf("staging buffer of %d bytes for %d byte payload: %w", len(dst), h.PayloadSize, api.ErrPayloadTooLarge)
	}
	off := lc.Spec.ByteOffset
	if _, err := storage.ReadAligned(lc.Port, off, dst[:h.PayloadSize]); err != nil {
		return nil, fmt.Errorf("reading payload at 0x%x: %w", off, err)
	}
	if err := header.VerifyPayload(h, dst[:h.PayloadSize], headerOptions(r.opts, lc.Port)); err != nil {
		return nil, err
	}
	auth := make([]byte, h.AuthSize)
	if _, err := storage.ReadAligned(lc.Port, off+h.PayloadSize, auth); err != nil {
		return nil, fmt.Errorf("reading signature at 0x%x: %w", off+h.PayloadSize, err)
	}
	return auth, nil
}
