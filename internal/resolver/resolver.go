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

// Package resolver turns the boot strap word latched by the SoC into the
// ordered list of devices the loader should try.
//
// The strap word follows the i.MX SRC_SBMR layout:
//
//	bits 25:24  BOOT_MODE   00 fuses, 01 serial downloader, 10 internal, 11 reserved
//	bits 12:11  USDHC port  selects the MMC slot
//	bits 7:4    BOOT_CFG1   0011 SPI NOR, 010x SD, 011x MMC, 1xxx NAND
//
// When booting from fuses the fuse values are mirrored into the same fields.
package resolver

import (
	"github.com/golang/glog"
	"github.com/google/bootchain/api"
)

// Boot modes, bits 25:24 of the strap.
const (
	ModeFuses    = 0x0
	ModeSerial   = 0x1
	ModeInternal = 0x2
	ModeReserved = 0x3
)

// Mode returns the BOOT_MODE field of a strap word.
func Mode(strap uint32) uint32 {
	return (strap >> 24) & 0x3
}

// Decode returns the primary boot device encoded in strap. The second return
// value is false if the strap doesn't name a device this loader can use.
func Decode(strap uint32) (api.BootDevice, bool) {
	switch Mode(strap) {
	case ModeSerial:
		return api.USBGadget(), true
	case ModeReserved:
		return api.None(), false
	}

	cfg1 := (strap >> 4) & 0xf
	switch {
	case cfg1&0x8 != 0:
		return api.NAND(), true
	case cfg1&0xe == 0x4, cfg1&0xe == 0x6:
		return api.MMC((strap >> 11) & 0x3), true
	case cfg1 == 0x3:
		return api.SPI(), true
	}
	return api.None(), false
}

// Resolver maps straps to device lists for a particular board.
type Resolver struct {
	// Fallbacks are tried, in order, after the strapped device.
	Fallbacks []api.BootDevice
}

// Resolve returns the devices to try for strap, in order.
//
// The list is never empty and always ends with ReturnToROM. Unrecognised
// straps yield just ReturnToROM. Serial download never falls back to local
// media. Devices appear at most once.
func (r Resolver) Resolve(strap uint32) []api.BootDevice {
	primary, ok := Decode(strap)
	if !ok {
		glog.Warningf("Unrecognised boot strap 0x%08x", strap)
		return []api.BootDevice{api.ReturnToROM()}
	}

	devs := []api.BootDevice{primary}
	if primary.Kind != api.KindUSBGadget {
		seen := map[api.BootDevice]bool{primary: true}
		for _, d := range r.Fallbacks {
			if seen[d] || d.Kind == api.KindNone || d.Kind == api.KindReturnToROM {
				continue
			}
			seen[d] = true
			devs = append(devs, d)
		}
	}
	devs = append(devs, api.ReturnToROM())
	glog.V(1).Infof("Strap 0x%08x: boot order %v", strap, devs)
	return devs
}

// Resolve resolves strap for a board without fallback devices.
func Resolve(strap uint32) []api.BootDevice {
	return Resolver{}.Resolve(strap)
}
