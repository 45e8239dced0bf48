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

package api

import "fmt"

const (
	// HeaderSize is the size in bytes of the on-medium image header.
	HeaderSize = 64
	// HeaderVersion is the only header version understood by the loader.
	HeaderVersion = 1
	// NameSize is the maximum length of the image name stored in the header.
	NameSize = 20

	// DefaultMagic is the header magic used when a strategy isn't configured
	// with its own.
	DefaultMagic uint32 = 0x424f4f54 // "BOOT"
)

// FlagChecksumPayload marks images whose checksum covers the payload as well as
// the header.
const FlagChecksumPayload uint8 = 1 << 0

// ImageKind is the declared kind of a firmware image.
type ImageKind uint8

const (
	// ImageUnknown is never valid on a medium.
	ImageUnknown ImageKind = iota
	// ImageLoader is a chained loader (e.g. the full bootloader).
	ImageLoader
	// ImageKernel is an operating system image booted directly.
	ImageKernel
	// ImageApplet is a WebAssembly applet.
	ImageApplet
	// ImageSigned is an image whose integrity check is delegated to an
	// external digest.
	ImageSigned
)

var imageKindNames = map[ImageKind]string{
	ImageUnknown: "unknown",
	ImageLoader:  "loader",
	ImageKernel:  "kernel",
	ImageApplet:  "applet",
	ImageSigned:  "signed",
}

// String returns the name of the image kind.
func (k ImageKind) String() string {
	if n, ok := imageKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ImageKind(%d)", uint8(k))
}

// ParseImageKind parses the names returned by ImageKind.String.
func ParseImageKind(s string) (ImageKind, error) {
	for k, n := range imageKindNames {
		if k != ImageUnknown && n == s {
			return k, nil
		}
	}
	return ImageUnknown, fmt.Errorf("unknown image kind %q", s)
}

// ImageHeader describes a candidate firmware image.
//
// Only the header package constructs these, and only from bytes which passed
// validation; an ImageHeader is never modified afterwards.
type ImageHeader struct {
	Magic       uint32
	Version     uint8
	Kind        ImageKind
	Flags       uint8
	PayloadSize uint64
	LoadAddr    uint64
	EntryPoint  uint64
	Checksum    uint64
	// AuthSize is the size of the signature region stored after the payload.
	AuthSize uint32
	Name     string
}

// String returns a human-readable summary of the header.
func (h ImageHeader) String() string {
	return fmt.Sprintf("%q %s v%d size=%d load=0x%x entry=0x%x", h.Name, h.Kind, h.Version, h.PayloadSize, h.LoadAddr, h.EntryPoint)
}

// StrategyKind identifies a loading strategy.
type StrategyKind int

const (
	// StrategyNone is used for device level events which didn't involve a
	// strategy.
	StrategyNone StrategyKind = iota
	// StrategyHardwareBootPartition reads from a vendor reserved boot area.
	StrategyHardwareBootPartition
	// StrategyRawSector reads from a fixed absolute offset.
	StrategyRawSector
	// StrategyRawPartitionTable reads relative to a partition table entry.
	StrategyRawPartitionTable
	// StrategyFilesystemFile reads a named file from a filesystem.
	StrategyFilesystemFile
)

var strategyKindNames = map[StrategyKind]string{
	StrategyNone:                  "none",
	StrategyHardwareBootPartition: "hw-boot-partition",
	StrategyRawSector:             "raw-sector",
	StrategyRawPartitionTable:     "raw-partition",
	StrategyFilesystemFile:        "fs-file",
}

// String returns the name of the strategy kind.
func (k StrategyKind) String() string {
	if n, ok := strategyKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("StrategyKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k StrategyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// HandoffRecord is the validated description of the next program to run.
//
// It refers to, but doesn't own, the payload which lives in the caller's
// destination buffer.
type HandoffRecord struct {
	LoadAddr   uint64
	EntryPoint uint64
	Size       uint64
	Kind       ImageKind
	Name       string

	// Device and Strategy record where the image was found.
	Device   BootDevice
	Strategy StrategyKind

	// ParamsAddr and Params describe an optional parameter blob (a device
	// tree for kernel images) which must be placed in memory before
	// transferring control.
	ParamsAddr uint64
	Params     []byte `json:"-"`
}

// String returns a human-readable summary of the record.
func (r HandoffRecord) String() string {
	return fmt.Sprintf("%s %q from %s/%s: load=0x%x entry=0x%x size=%d", r.Kind, r.Name, r.Device, r.Strategy, r.LoadAddr, r.EntryPoint, r.Size)
}

// LedgerEntry records the outcome of a single strategy attempt.
type LedgerEntry struct {
	Device   BootDevice
	Strategy StrategyKind
	// Header is set on success.
	Header *ImageHeader
	// Err is set on failure, and Kind classifies it.
	Err  error     `json:"-"`
	Kind ErrorKind `json:"ErrorKind"`
}

// String returns a human-readable summary of the entry.
func (e LedgerEntry) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s/%s: %s (%v)", e.Device, e.Strategy, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s/%s: ok %v", e.Device, e.Strategy, e.Header)
}
