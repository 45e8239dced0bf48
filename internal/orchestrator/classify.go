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

package orchestrator

import "github.com/google/bootchain/api"

// Class says how the orchestrator reacts to a failed attempt.
type Class int

const (
	// Recoverable failures move on to the next strategy.
	Recoverable Class = iota
	// Integrity failures also move on to the next strategy, but are logged
	// as warnings since they suggest corruption or tampering.
	Integrity
	// DeviceFatal failures abandon the rest of the device's strategies.
	DeviceFatal
)

func (c Class) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Integrity:
		return "Integrity"
	case DeviceFatal:
		return "DeviceFatal"
	}
	return "Class(?)"
}

// Classify returns the class of a failed attempt. Errors which don't wrap
// any of the api sentinels are device fatal.
func Classify(err error) Class {
	switch api.KindOf(err) {
	case api.ErrorTimeout,
		api.ErrorDeviceNotPresent,
		api.ErrorBadMagic,
		api.ErrorTruncated,
		api.ErrorMisaligned,
		api.ErrorUnsupportedImage,
		api.ErrorOverflow,
		api.ErrorPayloadTooLarge,
		api.ErrorNoBootablePartition,
		api.ErrorFileNotFound:
		return Recoverable
	case api.ErrorChecksumMismatch, api.ErrorAuthenticationFailed:
		return Integrity
	}
	return DeviceFatal
}
