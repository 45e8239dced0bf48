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

// Package testonly provides in-memory media for storage tests.
package testonly

import (
	"fmt"
	"testing"

	"github.com/google/bootchain/internal/storage"
)

// MemBlockSize is the block size of media created by NewMemDev.
const MemBlockSize = 512

// MemDev is a simple in-memory block device.
//
// It rejects unaligned reads, counts every read, and can be made to report
// that it isn't ready yet.
type MemDev struct {
	Data []byte
	BS   uint64

	// Reads counts calls to Read.
	Reads int
	// ReadyCalls counts calls to Ready.
	ReadyCalls int
	// NotReadyFor is the number of Ready calls which report false before
	// the device becomes ready. Negative values mean never.
	NotReadyFor int
	// Err, if set, is returned by every Read.
	Err error
	// Closed is set once Close has been called.
	Closed bool
}

// NewMemDev creates a new in-memory block device holding a copy of data,
// padded with zeroes to a whole number of blocks.
func NewMemDev(t *testing.T, data []byte) *MemDev {
	t.Helper()
	n := len(data)
	if r := n % MemBlockSize; r != 0 {
		n += MemBlockSize - r
	}
	d := make([]byte, n)
	copy(d, data)
	return &MemDev{Data: d, BS: MemBlockSize}
}

// BlockSize implements storage.ReadPort.
func (md *MemDev) BlockSize() uint64 {
	return md.BS
}

// Size implements storage.Sizer.
func (md *MemDev) Size() uint64 {
	return uint64(len(md.Data))
}

// Read implements storage.ReadPort.
func (md *MemDev) Read(offset, length uint64, into []byte) (uint64, error) {
	md.Reads++
	if md.Err != nil {
		return 0, md.Err
	}
	if offset%md.BS != 0 || length%md.BS != 0 {
		return 0, fmt.Errorf("unaligned read 0x%x+%d with block size %d", offset, length, md.BS)
	}
	if uint64(len(into)) < length {
		return 0, fmt.Errorf("buffer of %d bytes too small for %d", len(into), length)
	}
	if offset >= uint64(len(md.Data)) {
		return 0, nil
	}
	return uint64(copy(into[:length], md.Data[offset:])), nil
}

// Ready implements storage.ReadyChecker.
func (md *MemDev) Ready() (bool, error) {
	md.ReadyCalls++
	if md.NotReadyFor < 0 || md.ReadyCalls <= md.NotReadyFor {
		return false, nil
	}
	return true, nil
}

// Close implements io.Closer.
func (md *MemDev) Close() error {
	md.Closed = true
	return nil
}

// EMMCDev is an in-memory eMMC with a user area and two boot partitions.
type EMMCDev struct {
	*MemDev
	Boot [2]*MemDev
	// Config is the PARTITION_CONFIG register value.
	Config uint32
	// ConfigErr, if set, is returned by BootPartitionConfig.
	ConfigErr error

	// Selected is the currently selected partition.
	Selected uint32
	// Selections records every call to SelectPartition.
	Selections []uint32
}

// NewEMMCDev creates an eMMC whose boot partition enable field names
// bootPart (see storage.BootPartitionEnable).
func NewEMMCDev(t *testing.T, user, boot1, boot2 []byte, bootPart uint32) *EMMCDev {
	t.Helper()
	return &EMMCDev{
		MemDev: NewMemDev(t, user),
		Boot:   [2]*MemDev{NewMemDev(t, boot1), NewMemDev(t, boot2)},
		Config: bootPart << 3,
	}
}

func (e *EMMCDev) current() *MemDev {
	switch e.Selected {
	case storage.PartitionBoot1:
		return e.Boot[0]
	case storage.PartitionBoot2:
		return e.Boot[1]
	}
	return e.MemDev
}

// Read implements storage.ReadPort on the selected partition.
func (e *EMMCDev) Read(offset, length uint64, into []byte) (uint64, error) {
	return e.current().Read(offset, length, into)
}

// Size implements storage.Sizer for the selected partition.
func (e *EMMCDev) Size() uint64 {
	return e.current().Size()
}

// BootPartitionConfig implements storage.BootPartitioner.
func (e *EMMCDev) BootPartitionConfig() (uint32, error) {
	return e.Config, e.ConfigErr
}

// SelectPartition implements storage.BootPartitioner.
func (e *EMMCDev) SelectPartition(p uint32) error {
	if p > storage.PartitionBoot2 {
		return fmt.Errorf("no partition %d", p)
	}
	e.Selected = p
	e.Selections = append(e.Selections, p)
	return nil
}
