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

import (
	"errors"
	"fmt"
)

// Sentinel errors describing why a load attempt failed.
// Implementations wrap these with fmt.Errorf("...: %w", ...) to add context.
var (
	ErrTimeout             = errors.New("timed out waiting for device")
	ErrDeviceNotPresent    = errors.New("device not present")
	ErrDeviceUnavailable   = errors.New("device unavailable")
	ErrBadMagic            = errors.New("bad magic")
	ErrTruncated           = errors.New("truncated image")
	ErrMisaligned          = errors.New("payload size not a multiple of transfer size")
	ErrUnsupportedImage    = errors.New("unsupported image")
	ErrOverflow            = errors.New("image extent overflows address space")
	ErrPayloadTooLarge     = errors.New("payload larger than destination")
	ErrNoBootablePartition = errors.New("no bootable partition")
	ErrFileNotFound        = errors.New("file not found")

	ErrChecksumMismatch     = errors.New("checksum mismatch")
	ErrAuthenticationFailed = errors.New("authentication failed")

	ErrAllExhausted          = errors.New("all boot devices exhausted")
	ErrRegistryMisconfigured = errors.New("loader registry misconfigured")
)

// ErrorKind is the kind of a load error, independent of the concrete error
// value and its context.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorUnknown
	ErrorTimeout
	ErrorDeviceNotPresent
	ErrorDeviceUnavailable
	ErrorBadMagic
	ErrorTruncated
	ErrorMisaligned
	ErrorUnsupportedImage
	ErrorOverflow
	ErrorPayloadTooLarge
	ErrorNoBootablePartition
	ErrorFileNotFound
	ErrorChecksumMismatch
	ErrorAuthenticationFailed
	ErrorAllExhausted
	ErrorRegistryMisconfigured
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
	name string
}{
	// Terminal errors come first: they wrap the last attempt's error.
	{ErrAllExhausted, ErrorAllExhausted, "AllExhausted"},
	{ErrRegistryMisconfigured, ErrorRegistryMisconfigured, "RegistryMisconfigured"},
	{ErrTimeout, ErrorTimeout, "Timeout"},
	{ErrDeviceNotPresent, ErrorDeviceNotPresent, "DeviceNotPresent"},
	{ErrDeviceUnavailable, ErrorDeviceUnavailable, "DeviceUnavailable"},
	{ErrBadMagic, ErrorBadMagic, "BadMagic"},
	{ErrTruncated, ErrorTruncated, "Truncated"},
	{ErrMisaligned, ErrorMisaligned, "Misaligned"},
	{ErrUnsupportedImage, ErrorUnsupportedImage, "UnsupportedImage"},
	{ErrOverflow, ErrorOverflow, "Overflow"},
	{ErrPayloadTooLarge, ErrorPayloadTooLarge, "PayloadTooLarge"},
	{ErrNoBootablePartition, ErrorNoBootablePartition, "NoBootablePartition"},
	{ErrFileNotFound, ErrorFileNotFound, "FileNotFound"},
	{ErrChecksumMismatch, ErrorChecksumMismatch, "ChecksumMismatch"},
	{ErrAuthenticationFailed, ErrorAuthenticationFailed, "AuthenticationFailed"},
}

// String returns the name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "None"
	case ErrorUnknown:
		return "Unknown"
	}
	for _, e := range errorKinds {
		if e.kind == k {
			return e.name
		}
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// KindOf returns the kind of the first sentinel error found in err's chain.
// A nil error is ErrorNone, and errors which don't wrap any of the sentinels
// are ErrorUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorNone
	}
	for _, e := range errorKinds {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return ErrorUnknown
}
