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
	"github.com/google/bootchain/internal/header"
	"github.com/google/bootchain/internal/storage"
)

// HardwareBootPartition reads an image from one of the hardware boot
// partitions of an eMMC, as selected by its PARTITION_CONFIG register.
//
// The user area is re-selected after every access, so strategies which run
// afterwards see user data.
type HardwareBootPartition struct {
	// Offset is the byte offset of the image header from the start of the
	// boot partition.
	Offset uint64
	Header header.Options
}

// Kind implements Strategy.
func (HardwareBootPartition) Kind() api.StrategyKind { return api.StrategyHardwareBootPartition }

// Probe implements Strategy.
func (s HardwareBootPartition) Probe(ctx context.Context, lc *LoadContext) error {
	bp, ok := lc.Port.(storage.BootPartitioner)
	if !ok {
		return fmt.Errorf("%s has no boot partitions: %w", lc.Device, api.ErrDeviceNotPresent)
	}
	if err := waitReady(ctx, lc); err != nil {
		return err
	}
	cfg, err := bp.BootPartitionConfig()
	if err != nil {
		return fmt.Errorf("%s: reading partition config: %v: %w", lc.Device, err, api.ErrDeviceNotPresent)
	}
	part := storage.BootPartitionEnable(cfg)
	switch part {
	case storage.PartitionBoot1, storage.PartitionBoot2:
	default:
		return fmt.Errorf("%s: boot partition enable %d: %w", lc.Device, part, api.ErrDeviceNotPresent)
	}
	lc.Spec.Partition = &part
	lc.Spec.ByteOffset = s.Offset
	return nil
}

// LoadHeader implements Strategy.
func (s HardwareBootPartition) LoadHeader(_ context.Context, lc *LoadContext) (h api.ImageHeader, err error) {
	err = s.withPartition(lc, func() error {
		var err error
		h, err = rawImage{offset: s.Offset, opts: s.Header}.loadHeader(lc)
		return err
	})
	return h, err
}

// LoadPayload implements Strategy.
func (s HardwareBootPartition) LoadPayload(_ context.Context, lc *LoadContext, h api.ImageHeader, dst []byte) (auth []byte, err error) {
	err = s.withPartition(lc, func() error {
		var err error
		auth, err = rawImage{offset: s.Offset, opts: s.Header}.loadPayload(lc, h, dst)
		return err
	})
	return auth, err
}

// withPartition runs f with the boot partition chosen by Probe selected, and
// selects the user area again afterwards.
func (s HardwareBootPartition) withPartition(lc *LoadContext, f func() error) error {
	bp, ok := lc.Port.(storage.BootPartitioner)
	if !ok || lc.Spec.Partition == nil {
		return fmt.Errorf("%s: no boot partition selected: %w", lc.Device, api.ErrDeviceNotPresent)
	}
	if err := bp.SelectPartition(*lc.Spec.Partition); err != nil {
		return fmt.Errorf("%s: selecting boot partition %d: %v: %w", lc.Device, *lc.Spec.Partition, err, api.ErrDeviceNotPresent)
	}
	ferr := f()
	if err := bp.SelectPartition(storage.PartitionUser); err != nil {
		glog.Errorf("%s: failed to restore user area: %v", lc.Device, err)
		return fmt.Errorf("%s: restoring user area after %v: %v: %w", lc.Device, ferr, err, api.ErrDeviceUnavailable)
	}
	return ferr
}
