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

package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/storage"
	"github.com/google/bootchain/internal/strategy"
	"github.com/google/go-cmp/cmp"
)

func open(context.Context, api.BootDevice) (storage.ReadPort, error) {
	return nil, api.ErrDeviceUnavailable
}

var chain = []strategy.Strategy{strategy.RawSector{}}

func TestNew(t *testing.T) {
	for _, test := range []struct {
		name    string
		entries []EntryPoint
		wantErr bool
	}{
		{
			name: "ok",
			entries: []EntryPoint{
				{Kind: api.KindMMC, Open: open, Chain: chain},
				{Kind: api.KindSPI, Open: open, Chain: chain},
			},
		}, {
			name: "empty is allowed",
		}, {
			name:    "duplicate",
			entries: []EntryPoint{{Kind: api.KindMMC, Open: open, Chain: chain}, {Kind: api.KindMMC, Open: open, Chain: chain}},
			wantErr: true,
		}, {
			name:    "no open",
			entries: []EntryPoint{{Kind: api.KindMMC, Chain: chain}},
			wantErr: true,
		}, {
			name:    "no chain",
			entries: []EntryPoint{{Kind: api.KindMMC, Open: open}},
			wantErr: true,
		}, {
			name:    "nil strategy",
			entries: []EntryPoint{{Kind: api.KindMMC, Open: open, Chain: []strategy.Strategy{nil}}},
			wantErr: true,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.entries...)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("New: %v, wantErr %t", err, test.wantErr)
			}
			if test.wantErr && !errors.Is(err, api.ErrRegistryMisconfigured) {
				t.Errorf("New: %v, want %v", err, api.ErrRegistryMisconfigured)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	r, err := New(
		EntryPoint{Kind: api.KindSPI, Name: "nor", Open: open, Chain: chain},
		EntryPoint{Kind: api.KindMMC, Name: "sd", Open: open, Chain: chain},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, ok := r.Lookup(api.KindMMC); !ok || got.Name != "sd" {
		t.Errorf("Lookup(mmc) = %q, %t", got.Name, ok)
	}
	if _, ok := r.Lookup(api.KindReturnToROM); ok {
		t.Error("Lookup(rom) found an entry")
	}
	if diff := cmp.Diff([]api.DeviceKind{api.KindSPI, api.KindMMC}, r.Kinds()); diff != "" {
		t.Errorf("Kinds diff: %v", diff)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}
