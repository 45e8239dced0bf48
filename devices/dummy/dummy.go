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

// Package dummy provides fake boot media backed by image files, so the loader
// can be demoed without hardware.
package dummy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/config"
	"github.com/google/bootchain/internal/storage"
)

// DefaultBlockSize is used for media which don't specify one.
const DefaultBlockSize = 512

// Device is a block medium backed by a file.
type Device struct {
	f    *os.File
	size uint64
	bs   uint64

	// notReady is the number of Ready calls left which report false.
	// Negative values mean the device never becomes ready.
	notReady int
}

var (
	_ storage.ReadPort     = &Device{}
	_ storage.ReadyChecker = &Device{}
	_ storage.Sizer        = &Device{}
	_ io.Closer            = &Device{}
)

// New opens the image at path as a medium with the given block size.
func New(path string, blockSize uint64) (*Device, error) {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("image %q: %v: %w", path, err, api.ErrDeviceNotPresent)
		}
		return nil, fmt.Errorf("image %q: %v: %w", path, err, api.ErrDeviceUnavailable)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("unable to stat image %q: %v: %w", path, err, api.ErrDeviceUnavailable)
	}
	return &Device{f: f, size: uint64(fi.Size()), bs: blockSize}, nil
}

// BlockSize implements storage.ReadPort.
func (d *Device) BlockSize() uint64 {
	return d.bs
}

// Size implements storage.Sizer.
func (d *Device) Size() uint64 {
	return d.size
}

// Read implements storage.ReadPort.
//
// The image file needn't be a whole number of blocks long; the tail of the
// last block reads as zeroes.
func (d *Device) Read(offset, length uint64, into []byte) (uint64, error) {
	if offset%d.bs != 0 || length%d.bs != 0 {
		return 0, fmt.Errorf("unaligned read 0x%x+%d with block size %d: %w", offset, length, d.bs, api.ErrDeviceUnavailable)
	}
	if offset >= d.size {
		return 0, nil
	}
	into = into[:length]
	n, err := d.f.ReadAt(into, int64(offset))
	if err != nil && err != io.EOF {
		return uint64(n), fmt.Errorf("read 0x%x+%d: %v: %w", offset, length, err, api.ErrDeviceUnavailable)
	}
	got := uint64(n)
	if r := got % d.bs; r != 0 {
		pad := d.bs - r
		if got+pad > length {
			pad = length - got
		}
		clear(into[got : got+pad])
		got += pad
	}
	return got, nil
}

// Ready implements storage.ReadyChecker.
func (d *Device) Ready() (bool, error) {
	if d.notReady == 0 {
		return true, nil
	}
	if d.notReady > 0 {
		d.notReady--
	}
	return false, nil
}

// Close implements io.Closer.
func (d *Device) Close() error {
	if d == nil || d.f == nil {
		return nil
	}
	return d.f.Close()
}

// EMMC is a Device with two hardware boot partitions.
type EMMC struct {
	*Device
	boot     [2]*Device
	config   uint32
	selected uint32
}

var _ storage.BootPartitioner = &EMMC{}

func (e *EMMC) current() *Device {
	switch e.selected {
	case storage.PartitionBoot1:
		return e.boot[0]
	case storage.PartitionBoot2:
		return e.boot[1]
	}
	return e.Device
}

// Read implements storage.ReadPort on the selected partition.
func (e *EMMC) Read(offset, length uint64, into []byte) (uint64, error) {
	return e.current().Read(offset, length, into)
}

// Size implements storage.Sizer for the selected partition.
func (e *EMMC) Size() uint64 {
	return e.current().Size()
}

// BootPartitionConfig implements storage.BootPartitioner.
func (e *EMMC) BootPartitionConfig() (uint32, error) {
	return e.config, nil
}

// SelectPartition implements storage.BootPartitioner.
func (e *EMMC) SelectPartition(p uint32) error {
	if p > storage.PartitionBoot2 {
		return fmt.Errorf("no partition %d: %w", p, api.ErrDeviceUnavailable)
	}
	glog.V(2).Infof("eMMC: selecting partition %d", p)
	e.selected = p
	return nil
}

// Close implements io.Closer, closing every partition.
func (e *EMMC) Close() error {
	errs := []error{e.Device.Close()}
	for _, b := range e.boot {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}

// Media opens the media described by a board config.
type Media struct {
	media map[api.BootDevice]config.Medium
}

// NewMedia returns the media for a board.
func NewMedia(media []config.Medium) *Media {
	m := &Media{media: make(map[api.BootDevice]config.Medium)}
	for _, md := range media {
		m.media[md.Device] = md
	}
	return m
}

// Open opens the medium for d. Its signature matches registry.EntryPoint.Open.
func (m *Media) Open(_ context.Context, d api.BootDevice) (storage.ReadPort, error) {
	md, ok := m.media[d]
	if !ok {
		return nil, fmt.Errorf("no medium for %s: %w", d, api.ErrDeviceNotPresent)
	}
	dev, err := New(md.Image, md.BlockSize)
	if err != nil {
		return nil, err
	}
	dev.notReady = md.NotReadyPolls
	if len(md.BootPartitions) == 0 {
		return dev, nil
	}

	e := &EMMC{Device: dev, config: (md.BootPartitionEnable & 0x7) << 3}
	for i, p := range md.BootPartitions {
		b, err := New(p, md.BlockSize)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("boot partition %d: %w", i+1, err)
		}
		e.boot[i] = b
	}
	for i := len(md.BootPartitions); i < len(e.boot); i++ {
		e.boot[i] = &Device{bs: dev.bs}
	}
	return e, nil
}
