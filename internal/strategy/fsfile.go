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

package strategy

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/handoff"
	"github.com/google/bootchain/internal/header"
)

// FilesystemFile reads an image from a named file on a filesystem.
//
// The file holds the header, payload and signature region back to back.
type FilesystemFile struct {
	FS FilesystemProvider
	// Table, if set, locates the partition holding the filesystem. The
	// whole medium is used otherwise.
	Table PartitionTableProvider
	// Path is the path of the image file.
	Path string
	// Header configures header validation. Granularity defaults to one byte.
	Header header.Options
	// OS, if set, boots a kernel image directly instead of chaining to a
	// further loader.
	OS *OSBoot
}

// OSBoot configures direct kernel boot.
type OSBoot struct {
	// DeviceTree is the path of the flattened device tree to pass to the
	// kernel.
	DeviceTree string
	// Bootargs is set as /chosen/bootargs in the device tree.
	Bootargs string
	// ParamsAddr is where the device tree must be placed in memory.
	ParamsAddr uint64
}

// Kind implements Strategy.
func (FilesystemFile) Kind() api.StrategyKind { return api.StrategyFilesystemFile }

// Probe implements Strategy.
func (s FilesystemFile) Probe(ctx context.Context, lc *LoadContext) error {
	if s.FS == nil {
		return fmt.Errorf("no filesystem provider: %w", api.ErrDeviceNotPresent)
	}
	if err := waitReady(ctx, lc); err != nil {
		return err
	}
	if s.Table != nil {
		w, err := bootPartition(lc, s.Table)
		if err != nil {
			return err
		}
		lc.Port = w
	}
	lc.Spec.ByteOffset = 0
	return nil
}

func (s FilesystemFile) headerOptions() header.Options {
	opts := s.Header
	if opts.Magic == 0 {
		opts.Magic = api.DefaultMagic
	}
	return opts
}

// LoadHeader implements Strategy. The whole file is read and held until
// LoadPayload.
func (s FilesystemFile) LoadHeader(_ context.Context, lc *LoadContext) (api.ImageHeader, error) {
	data, err := s.FS.ReadFile(lc.Port, s.Path)
	if err != nil {
		return api.ImageHeader{}, fmt.Errorf("%s: reading %q: %w", lc.Device, s.Path, err)
	}
	h, err := header.Parse(data, s.headerOptions())
	if err != nil {
		return api.ImageHeader{}, fmt.Errorf("%q: %w", s.Path, err)
	}
	size, err := header.ImageSize(h)
	if err != nil {
		return api.ImageHeader{}, err
	}
	if uint64(len(data)) < size {
		return api.ImageHeader{}, fmt.Errorf("%q is %d bytes, image needs %d: %w", s.Path, len(data), size, api.ErrTruncated)
	}
	if s.OS != nil && h.Kind != api.ImageKernel {
		return api.ImageHeader{}, fmt.Errorf("%q is a %s image, want %s: %w", s.Path, h.Kind, api.ImageKernel, api.ErrUnsupportedImage)
	}
	lc.staged = data
	lc.Spec.ByteOffset = api.HeaderSize
	glog.V(1).Infof("%s %q: found %v", lc.Spec, s.Path, h)
	return h, nil
}

// LoadPayload implements Strategy.
func (s FilesystemFile) LoadPayload(_ context.Context, lc *LoadContext, h api.ImageHeader, dst []byte) ([]byte, error) {
	if uint64(len(dst)) < h.PayloadSize {
		return nil, fmt.Errorf("staging buffer of %d bytes for %d byte payload: %w", len(dst), h.PayloadSize, api.ErrPayloadTooLarge)
	}
	size, err := header.ImageSize(h)
	if err != nil {
		return nil, err
	}
	if uint64(len(lc.staged)) < size {
		return nil, fmt.Errorf("%q: header not loaded: %w", s.Path, api.ErrTruncated)
	}
	payloadEnd := api.HeaderSize + h.PayloadSize
	payload := lc.staged[api.HeaderSize:payloadEnd]
	auth := append([]byte(nil), lc.staged[payloadEnd:size]...)
	lc.staged = nil
	if err := header.VerifyPayload(h, payload, s.headerOptions()); err != nil {
		return nil, fmt.Errorf("%q: %w", s.Path, err)
	}
	copy(dst, payload)

	if s.OS != nil {
		dtb, err := s.FS.ReadFile(lc.Port, s.OS.DeviceTree)
		if err != nil {
			return nil, fmt.Errorf("%s: reading %q: %w", lc.Device, s.OS.DeviceTree, err)
		}
		fixed, err := handoff.SetBootargs(dtb, s.OS.Bootargs)
		if err != nil {
			return nil, fmt.Errorf("%q: %v: %w", s.OS.DeviceTree, err, api.ErrUnsupportedImage)
		}
		lc.Params = fixed
		lc.ParamsAddr = s.OS.ParamsAddr
	}
	return auth, nil
}
