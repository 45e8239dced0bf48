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

// Package api contains the types shared between the components of the boot
// pipeline: boot devices, image headers, handoff records and the error
// taxonomy.
package api

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceKind identifies a class of boot medium.
type DeviceKind int

const (
	// KindNone means no boot device could be identified.
	KindNone DeviceKind = iota
	// KindMMC is an SD card or eMMC attached to a uSDHC controller.
	KindMMC
	// KindSPI is a SPI NOR flash.
	KindSPI
	// KindNAND is a raw NAND flash.
	KindNAND
	// KindUSBGadget is an image pushed by a host over USB (serial download).
	KindUSBGadget
	// KindReturnToROM hands control back to the boot ROM recovery path.
	KindReturnToROM
)

var deviceKindNames = map[DeviceKind]string{
	KindNone:        "none",
	KindMMC:         "mmc",
	KindSPI:         "spi",
	KindNAND:        "nand",
	KindUSBGadget:   "usb",
	KindReturnToROM: "rom",
}

// String returns the short name of the device kind.
func (k DeviceKind) String() string {
	if n, ok := deviceKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("DeviceKind(%d)", int(k))
}

// ParseDeviceKind parses the names returned by DeviceKind.String.
func ParseDeviceKind(s string) (DeviceKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range deviceKindNames {
		if n == s {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("unknown device kind %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *DeviceKind) UnmarshalText(b []byte) error {
	v, err := ParseDeviceKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// BootDevice identifies a physical boot source.
// It is a value type and is never modified once computed for a boot attempt.
type BootDevice struct {
	Kind DeviceKind
	// Slot is the controller index for KindMMC devices, zero otherwise.
	Slot uint32
}

// MMC returns the BootDevice for the card on the given uSDHC slot.
func MMC(slot uint32) BootDevice { return BootDevice{Kind: KindMMC, Slot: slot} }

// SPI returns the BootDevice for the SPI NOR flash.
func SPI() BootDevice { return BootDevice{Kind: KindSPI} }

// NAND returns the BootDevice for the raw NAND flash.
func NAND() BootDevice { return BootDevice{Kind: KindNAND} }

// USBGadget returns the BootDevice for serial download over USB.
func USBGadget() BootDevice { return BootDevice{Kind: KindUSBGadget} }

// None returns the BootDevice used when nothing could be identified.
func None() BootDevice { return BootDevice{Kind: KindNone} }

// ReturnToROM returns the BootDevice for the boot ROM recovery path.
func ReturnToROM() BootDevice { return BootDevice{Kind: KindReturnToROM} }

// String returns a short human readable name, e.g. "mmc1" or "spi".
func (d BootDevice) String() string {
	if d.Kind == KindMMC {
		return fmt.Sprintf("mmc%d", d.Slot)
	}
	return d.Kind.String()
}

// ParseBootDevice parses the names produced by BootDevice.String.
func ParseBootDevice(s string) (BootDevice, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "mmc") {
		slot, err := strconv.ParseUint(strings.TrimPrefix(s, "mmc"), 10, 32)
		if err != nil {
			return BootDevice{}, fmt.Errorf("invalid mmc slot in %q: %v", s, err)
		}
		return MMC(uint32(slot)), nil
	}
	for k, n := range deviceKindNames {
		if k != KindMMC && n == s {
			return BootDevice{Kind: k}, nil
		}
	}
	return BootDevice{}, fmt.Errorf("unknown boot device %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d BootDevice) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *BootDevice) UnmarshalText(b []byte) error {
	v, err := ParseBootDevice(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// LoadSpec describes where a strategy attempt reads from.
// It's constructed fresh for every attempt.
type LoadSpec struct {
	Device BootDevice
	// Partition is the hardware or table partition number the offset is
	// relative to, if any.
	Partition *uint32
	// ByteOffset is the absolute (or partition relative, when Partition is
	// set) offset of the next read.
	ByteOffset uint64
}

// String returns a human readable form, e.g. "mmc0:p1@0x400".
func (s LoadSpec) String() string {
	if s.Partition != nil {
		return fmt.Sprintf("%s:p%d@0x%x", s.Device, *s.Partition, s.ByteOffset)
	}
	return fmt.Sprintf("%s@0x%x", s.Device, s.ByteOffset)
}
