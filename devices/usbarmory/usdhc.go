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

//go:build armory
// +build armory

// Package usbarmory provides boot media backed by the USB armory uSDHC
// controllers.
package usbarmory

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/storage"
	usbarmory "github.com/usbarmory/tamago/board/usbarmory/mk2"
	"github.com/usbarmory/tamago/soc/nxp/usdhc"
)

var (
	// MaxTransferBytes is the largest transfer we'll attempt.
	// Larger reads are chunked so they fit into the available DMA memory.
	MaxTransferBytes = 32 * 1024
)

// Card is a storage.ReadPort for an SD card or eMMC.
type Card struct {
	Card *usdhc.USDHC

	detected bool
}

// BlockSize implements storage.ReadPort.
func (c *Card) BlockSize() uint64 {
	return uint64(c.Card.Info().BlockSize)
}

// Size implements storage.Sizer.
func (c *Card) Size() uint64 {
	info := c.Card.Info()
	return uint64(info.Blocks) * uint64(info.BlockSize)
}

// Ready implements storage.ReadyChecker by attempting card detection.
func (c *Card) Ready() (bool, error) {
	if c.detected {
		return true, nil
	}
	if err := c.Card.Detect(); err != nil {
		glog.V(1).Infof("card not ready: %v", err)
		return false, nil
	}
	c.detected = true
	return true, nil
}

// Read implements storage.ReadPort.
func (c *Card) Read(offset, length uint64, into []byte) (uint64, error) {
	bs := c.BlockSize()
	if bs == 0 {
		return 0, fmt.Errorf("card not initialised: %w", api.ErrDeviceUnavailable)
	}
	if offset%bs != 0 || length%bs != 0 {
		return 0, fmt.Errorf("unaligned read 0x%x+%d with block size %d: %w", offset, length, bs, api.ErrDeviceUnavailable)
	}
	if size := c.Size(); offset >= size {
		return 0, nil
	} else if offset+length > size {
		length = size - offset
	}

	b := into[:length]
	lba := offset / bs
	for len(b) > 0 {
		bl := len(b)
		if bl > MaxTransferBytes {
			bl = MaxTransferBytes
		}
		if err := c.Card.ReadBlocks(int(lba), b[:bl]); err != nil {
			return length - uint64(len(b)), fmt.Errorf("read lba %d: %v: %w", lba, err, api.ErrDeviceUnavailable)
		}
		b = b[bl:]
		lba += uint64(bl) / bs
	}
	return length, nil
}

// Open returns the card for d: slot 0 is the microSD card and slot 1 the
// eMMC.
func Open(_ context.Context, d api.BootDevice) (storage.ReadPort, error) {
	if d.Kind != api.KindMMC {
		return nil, fmt.Errorf("%s: %w", d, api.ErrDeviceNotPresent)
	}
	switch d.Slot {
	case 0:
		return &Card{Card: usbarmory.SD}, nil
	case 1:
		return &Card{Card: usbarmory.MMC}, nil
	}
	return nil, fmt.Errorf("%s: no such slot: %w", d, api.ErrDeviceNotPresent)
}
