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

	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/header"
	"github.com/google/bootchain/internal/storage"
)

// RawSector reads an image stored at a fixed absolute byte offset of the
// medium.
type RawSector struct {
	// Offset is the byte offset of the image header.
	Offset uint64
	Header header.Options
}

// Kind implements Strategy.
func (RawSector) Kind() api.StrategyKind { return api.StrategyRawSector }

// Probe implements Strategy.
func (s RawSector) Probe(ctx context.Context, lc *LoadContext) error {
	lc.Spec.ByteOffset = s.Offset
	return waitReady(ctx, lc)
}

// LoadHeader implements Strategy.
func (s RawSector) LoadHeader(_ context.Context, lc *LoadContext) (api.ImageHeader, error) {
	return rawImage{offset: s.Offset, opts: s.Header}.loadHeader(lc)
}

// LoadPayload implements Strategy.
func (s RawSector) LoadPayload(_ context.Context, lc *LoadContext, h api.ImageHeader, dst []byte) ([]byte, error) {
	return rawImage{offset: s.Offset, opts: s.Header}.loadPayload(lc, h, dst)
}

// RawPartitionTable reads an image stored at a fixed offset inside the boot
// partition named by the medium's partition table.
type RawPartitionTable struct {
	Table PartitionTableProvider
	// Offset is the byte offset of the image header from the start of the
	// partition.
	Offset uint64
	Header header.Options
}

// Kind implements Strategy.
func (RawPartitionTable) Kind() api.StrategyKind { return api.StrategyRawPartitionTable }

// Probe implements Strategy. On success lc.Port is narrowed to the boot
// partition.
func (s RawPartitionTable) Probe(ctx context.Context, lc *LoadContext) error {
	if err := waitReady(ctx, lc); err != nil {
		return err
	}
	w, err := bootPartition(lc, s.Table)
	if err != nil {
		return err
	}
	lc.Port = w
	lc.Spec.ByteOffset = s.Offset
	return nil
}

// LoadHeader implements Strategy.
func (s RawPartitionTable) LoadHeader(_ context.Context, lc *LoadContext) (api.ImageHeader, error) {
	return rawImage{offset: s.Offset, opts: s.Header}.loadHeader(lc)
}

// LoadPayload implements Strategy.
func (s RawPartitionTable) LoadPayload(_ context.Context, lc *LoadContext, h api.ImageHeader, dst []byte) ([]byte, error) {
	return rawImage{offset: s.Offset, opts: s.Header}.loadPayload(lc, h, dst)
}

// bootPartition asks t for the boot partition of lc.Port and returns a view
// of it.
func bootPartition(lc *LoadContext, t PartitionTableProvider) (*storage.Window, error) {
	if t == nil {
		return nil, fmt.Errorf("no partition table provider: %w", api.ErrNoBootablePartition)
	}
	info, err := t.FindBootPartition(lc.Port)
	if err != nil {
		return nil, err
	}
	if !info.Bootable || info.Size == 0 {
		return nil, fmt.Errorf("partition %d isn't bootable: %w", info.Index, api.ErrNoBootablePartition)
	}
	w, err := storage.NewWindow(lc.Port, info.StartOffset, info.Size)
	if err != nil {
		return nil, err
	}
	idx := info.Index
	lc.Spec.Partition = &idx
	return w, nil
}
