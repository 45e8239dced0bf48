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

// Package partition finds boot partitions in DOS (MBR) and GUID (GPT)
// partition tables.
package partition

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/storage"
	"github.com/google/bootchain/internal/strategy"
)

const (
	sectorSize     = 512
	tableOffset    = 446
	numEntries     = 4
	signatureLo    = 0x55
	signatureHi    = 0xaa
	statusActive   = 0x80
	typeEmpty      = 0x00
	typeProtective = 0xee
)

// entry is the on-disk layout of an MBR partition entry.
type entry struct {
	Status   uint8
	FirstCHS [3]byte
	Type     uint8
	LastCHS  [3]byte
	FirstLBA uint32
	Sectors  uint32
}

// MBR implements strategy.PartitionTableProvider for DOS partition tables.
type MBR struct {
	// Partition, if non-zero, is the 1-based number of the partition to
	// boot from whether or not it's marked active. Otherwise the first
	// active partition is used.
	Partition uint32
}

// Entries returns the partition table entries of p, numbered from 1.
// Empty entries are omitted. A protective MBR defers to the GUID partition
// table behind it.
func (m MBR) Entries(p storage.ReadPort) ([]strategy.PartitionInfo, error) {
	sector := make([]byte, sectorSize)
	if _, err := storage.ReadAligned(p, 0, sector); err != nil {
		return nil, fmt.Errorf("reading MBR: %w", err)
	}
	if sector[510] != signatureLo || sector[511] != signatureHi {
		return nil, fmt.Errorf("no MBR signature: %w", api.ErrNoBootablePartition)
	}

	var entries [numEntries]entry
	if err := binary.Read(bytes.NewReader(sector[tableOffset:510]), binary.LittleEndian, &entries); err != nil {
		return nil, fmt.Errorf("parsing MBR: %w", err)
	}
	var ret []strategy.PartitionInfo
	for i, e := range entries {
		switch e.Type {
		case typeEmpty:
			continue
		case typeProtective:
			glog.V(1).Infof("Protective MBR, reading GPT")
			return GPT{}.Entries(p)
		}
		ret = append(ret, strategy.PartitionInfo{
			Index:       uint32(i + 1),
			StartOffset: uint64(e.FirstLBA) * sectorSize,
			Size:        uint64(e.Sectors) * sectorSize,
			Bootable:    e.Status == statusActive,
		})
	}
	return ret, nil
}

// FindBootPartition implements strategy.PartitionTableProvider.
func (m MBR) FindBootPartition(p storage.ReadPort) (strategy.PartitionInfo, error) {
	entries, err := m.Entries(p)
	if err != nil {
		return strategy.PartitionInfo{}, err
	}
	return choose(entries, m.Partition)
}

// choose returns the entry numbered want, or the first bootable entry if want
// is zero.
func choose(entries []strategy.PartitionInfo, want uint32) (strategy.PartitionInfo, error) {
	for _, e := range entries {
		if want != 0 {
			if e.Index == want {
				e.Bootable = true
				glog.V(1).Infof("Using partition %d at 0x%x", e.Index, e.StartOffset)
				return e, nil
			}
			continue
		}
		if e.Bootable {
			glog.V(1).Infof("Using active partition %d at 0x%x", e.Index, e.StartOffset)
			return e, nil
		}
	}
	if want != 0 {
		return strategy.PartitionInfo{}, fmt.Errorf("partition %d is empty: %w", want, api.ErrNoBootablePartition)
	}
	return strategy.PartitionInfo{}, fmt.Errorf("no active partition: %w", api.ErrNoBootablePartition)
}

// Encode returns a boot sector holding the given entries, for building test
// media and disk images.
func Encode(parts []strategy.PartitionInfo) ([]byte, error) {
	if len(parts) > numEntries {
		return nil, fmt.Errorf("%d partitions, MBR holds %d", len(parts), numEntries)
	}
	var entries [numEntries]entry
	for _, p := range parts {
		if p.Index < 1 || p.Index > numEntries {
			return nil, fmt.Errorf("invalid partition number %d", p.Index)
		}
		if p.StartOffset%sectorSize != 0 || p.Size%sectorSize != 0 {
			return nil, fmt.Errorf("partition %d isn't sector aligned: %w", p.Index, api.ErrMisaligned)
		}
		e := entry{
			// Linux native.
			Type:     0x83,
			FirstLBA: uint32(p.StartOffset / sectorSize),
			Sectors:  uint32(p.Size / sectorSize),
		}
		if p.Bootable {
			e.Status = statusActive
		}
		entries[p.Index-1] = e
	}
	return encodeEntries(entries), nil
}

func encodeEntries(entries [numEntries]entry) []byte {
	buf := bytes.NewBuffer(make([]byte, tableOffset, sectorSize))
	// buf.Write never fails
	binary.Write(buf, binary.LittleEndian, &entries)
	buf.Write([]byte{signatureLo, signatureHi})
	return buf.Bytes()
}
