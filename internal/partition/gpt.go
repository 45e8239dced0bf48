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

package partition

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/storage"
	"github.com/google/bootchain/internal/strategy"
	"github.com/u-root/u-root/pkg/mount/gpt"
)

// attrLegacyBootable is the GPT "legacy BIOS bootable" attribute bit.
const attrLegacyBootable gpt.PartAttr = 1 << 2

// linuxData is the partition type GUID for Linux filesystem data,
// 0FC63DAF-8483-4772-8E79-3D69D8477DE4.
var linuxData = gpt.GUID{L: 0x0fc63daf, W1: 0x8483, W2: 0x4772, B: [8]byte{0x8e, 0x79, 0x3d, 0x69, 0xd8, 0x47, 0x7d, 0xe4}}

// GPT implements strategy.PartitionTableProvider for GUID partition tables.
//
// Partitions with the legacy BIOS bootable attribute set are treated the way
// active MBR partitions are.
type GPT struct {
	// Partition, if non-zero, is the 1-based number of the partition to
	// boot from whether or not it's marked bootable.
	Partition uint32
}

// Entries returns the used partition entries of p, numbered from 1.
//
// Only the primary table is required. A damaged or missing backup table is
// logged and otherwise ignored.
func (g GPT) Entries(p storage.ReadPort) ([]strategy.PartitionInfo, error) {
	pt, err := gpt.New(storage.NewReader(p))
	if pt == nil || pt.Primary == nil {
		return nil, fmt.Errorf("no GPT: %v: %w", err, api.ErrNoBootablePartition)
	}
	if err != nil {
		glog.Warningf("GPT: using primary table: %v", err)
	}

	var ret []strategy.PartitionInfo
	for i, part := range pt.Primary.Parts {
		if part.PartGUID == (gpt.GUID{}) {
			continue
		}
		if part.LastLBA < part.FirstLBA {
			return nil, fmt.Errorf("GPT partition %d ends at LBA %d before it starts at %d: %w", i+1, part.LastLBA, part.FirstLBA, api.ErrNoBootablePartition)
		}
		ret = append(ret, strategy.PartitionInfo{
			Index:       uint32(i + 1),
			StartOffset: part.FirstLBA * gpt.BlockSize,
			Size:        (part.LastLBA - part.FirstLBA + 1) * gpt.BlockSize,
			Bootable:    part.Attribute&attrLegacyBootable != 0,
		})
	}
	return ret, nil
}

// FindBootPartition implements strategy.PartitionTableProvider.
func (g GPT) FindBootPartition(p storage.ReadPort) (strategy.PartitionInfo, error) {
	entries, err := g.Entries(p)
	if err != nil {
		return strategy.PartitionInfo{}, err
	}
	return choose(entries, g.Partition)
}

// EncodeGPT returns a medium of size bytes holding a protective MBR and
// primary and backup GUID partition tables describing parts, for building
// test media and disk images. Partition contents are left zeroed.
func EncodeGPT(parts []strategy.PartitionInfo, size uint64) ([]byte, error) {
	const (
		entrySize    = 128
		entrySectors = gpt.MaxNPart * entrySize / gpt.BlockSize
	)
	if size%gpt.BlockSize != 0 {
		return nil, fmt.Errorf("medium of %d bytes isn't sector aligned: %w", size, api.ErrMisaligned)
	}
	last := size/gpt.BlockSize - 1
	if last < 2*(entrySectors+1)+1 {
		return nil, fmt.Errorf("medium of %d bytes too small for a GPT", size)
	}
	first, lastUsable := uint64(2+entrySectors), last-entrySectors-1

	entries := make([]gpt.Part, gpt.MaxNPart)
	for _, p := range parts {
		if p.Index < 1 || p.Index > gpt.MaxNPart {
			return nil, fmt.Errorf("invalid partition number %d", p.Index)
		}
		if p.StartOffset%gpt.BlockSize != 0 || p.Size%gpt.BlockSize != 0 || p.Size == 0 {
			return nil, fmt.Errorf("partition %d isn't sector aligned: %w", p.Index, api.ErrMisaligned)
		}
		e := gpt.Part{
			PartGUID:   linuxData,
			UniqueGUID: gpt.GUID{L: p.Index, W1: 0xb007},
			FirstLBA:   p.StartOffset / gpt.BlockSize,
			LastLBA:    (p.StartOffset+p.Size)/gpt.BlockSize - 1,
		}
		if e.FirstLBA < first || e.LastLBA > lastUsable {
			return nil, fmt.Errorf("partition %d outside usable sectors %d-%d", p.Index, first, lastUsable)
		}
		if p.Bootable {
			e.Attribute |= attrLegacyBootable
		}
		entries[p.Index-1] = e
	}

	hdr := gpt.Header{
		Signature:  gpt.Signature,
		Revision:   gpt.Revision,
		HeaderSize: gpt.HeaderSize,
		CurrentLBA: 1,
		BackupLBA:  last,
		FirstLBA:   first,
		LastLBA:    lastUsable,
		DiskGUID:   gpt.GUID{L: 0xb0075eed},
		PartStart:  2,
		NPart:      gpt.MaxNPart,
		PartSize:   entrySize,
	}
	backup := hdr
	backup.CurrentLBA, backup.BackupLBA = last, 1
	backup.PartStart = last - entrySectors

	out := make(medium, size)
	if err := gpt.Write(out, &gpt.PartitionTable{
		MasterBootRecord: protectiveMBR(last),
		Primary:          &gpt.GPT{Header: hdr, Parts: entries},
		Backup:           &gpt.GPT{Header: backup, Parts: entries},
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// protectiveMBR returns a boot sector with a single entry covering the disk.
func protectiveMBR(last uint64) *gpt.MBR {
	sectors := uint32(0xffffffff)
	if last < uint64(sectors) {
		sectors = uint32(last)
	}
	var entries [numEntries]entry
	entries[0] = entry{Type: typeProtective, FirstLBA: 1, Sectors: sectors}
	mbr := &gpt.MBR{}
	copy(mbr[:], encodeEntries(entries))
	return mbr
}

// medium is a fixed size in-memory disk.
type medium []byte

func (m medium) WriteAt(b []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m)) || int64(len(b)) > int64(len(m))-off {
		return 0, fmt.Errorf("write of %d bytes at %d outside %d byte medium", len(b), off, len(m))
	}
	return copy(m[off:], b), nil
}
