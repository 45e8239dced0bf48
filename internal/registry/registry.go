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

// Package registry holds the static table mapping boot device kinds to the
// code which loads from them.
package registry

import (
	"context"
	"fmt"

	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/storage"
	"github.com/google/bootchain/internal/strategy"
)

// EntryPoint describes how to load from one kind of boot device.
type EntryPoint struct {
	Kind api.DeviceKind
	// Name is used in logs.
	Name string
	// Open returns the medium for a device. Errors should wrap
	// api.ErrDeviceUnavailable.
	Open func(ctx context.Context, d api.BootDevice) (storage.ReadPort, error)
	// Chain lists the strategies to try, in order.
	Chain []strategy.Strategy
}

// Registry is an ordered, immutable set of entry points.
type Registry struct {
	entries []EntryPoint
}

// New returns a Registry holding entries, in order.
//
// It returns an error wrapping api.ErrRegistryMisconfigured if an entry is
// incomplete or a device kind appears twice.
func New(entries ...EntryPoint) (*Registry, error) {
	seen := make(map[api.DeviceKind]bool)
	for i, e := range entries {
		switch {
		case e.Open == nil:
			return nil, fmt.Errorf("entry %d (%s) has no Open func: %w", i, e.Kind, api.ErrRegistryMisconfigured)
		case len(e.Chain) == 0:
			return nil, fmt.Errorf("entry %d (%s) has no strategies: %w", i, e.Kind, api.ErrRegistryMisconfigured)
		case seen[e.Kind]:
			return nil, fmt.Errorf("duplicate entry for %s: %w", e.Kind, api.ErrRegistryMisconfigured)
		}
		for j, s := range e.Chain {
			if s == nil {
				return nil, fmt.Errorf("entry %d (%s) strategy %d is nil: %w", i, e.Kind, j, api.ErrRegistryMisconfigured)
			}
		}
		seen[e.Kind] = true
	}
	return &Registry{entries: append([]EntryPoint(nil), entries...)}, nil
}

// Lookup returns the entry point for kind, if there is one.
func (r *Registry) Lookup(kind api.DeviceKind) (EntryPoint, bool) {
	for _, e := range r.entries {
		if e.Kind == kind {
			return e, true
		}
	}
	return EntryPoint{}, false
}

// Len returns the number of entry points.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Kinds returns the registered device kinds, in order.
func (r *Registry) Kinds() []api.DeviceKind {
	ret := make([]api.DeviceKind, 0, len(r.entries))
	for _, e := range r.entries {
		ret = append(ret, e.Kind)
	}
	return ret
}
