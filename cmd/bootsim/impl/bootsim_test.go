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

package impl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/config"
	"github.com/google/bootchain/internal/header"
	"github.com/google/bootchain/internal/header/testonly"
	"github.com/google/bootchain/internal/orchestrator"
	"github.com/google/bootchain/internal/verify"
	"github.com/google/go-cmp/cmp"
)

const rawOffset = 0x10000

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%q): %v", p, err)
	}
	return p
}

// board writes a single MMC medium holding media and returns a board which
// loads from it with the raw sector strategy.
func board(t *testing.T, media []byte, extra string) *config.Board {
	t.Helper()
	dir := t.TempDir()
	img := writeFile(t, dir, "mmc0.img", media)
	yaml := fmt.Sprintf(`Name: test
Strap: 0x41
Poll:
  MaxPolls: 3
  Interval: 1ms
Media:
  - Device: mmc0
    Image: %s
Loaders:
  - Kind: mmc
    Strategies:
      - Type: raw-sector
        Offset: %d
%s`, img, rawOffset, extra)
	b, err := config.Load(writeFile(t, dir, "board.yaml", []byte(yaml)))
	if err != nil {
		t.Fatalf("config.Load(): %v", err)
	}
	return b
}

func TestBoot(t *testing.T) {
	payload := testonly.Payload(1024)
	img := testonly.Image(t, api.ImageHeader{Name: "u-boot", LoadAddr: 0x80000000, EntryPoint: 0x80000000, Flags: api.FlagChecksumPayload}, payload, nil, header.Options{})
	b := board(t, testonly.At(0x20000, rawOffset, img), "")

	st := Boot(context.Background(), b, BootOpts{Strap: -1})
	if st.Err != nil {
		t.Fatalf("Boot(): %v", st.Err)
	}
	if got, want := st.Devices, []api.BootDevice{api.MMC(0), api.ReturnToROM()}; !cmp.Equal(got, want) {
		t.Errorf("Devices: %v, want %v", got, want)
	}
	want := api.HandoffRecord{
		LoadAddr:   0x80000000,
		EntryPoint: 0x80000000,
		Size:       1024,
		Kind:       api.ImageLoader,
		Name:       "u-boot",
		Device:     api.MMC(0),
		Strategy:   api.StrategyRawSector,
	}
	if diff := cmp.Diff(want, st.Result.Record); diff != "" {
		t.Errorf("Record diff (-want +got):\n%s", diff)
	}
	if got := len(st.Result.Ledger); got != 1 {
		t.Errorf("ledger has %d entries, want 1", got)
	}
	if got := st.Transitions[len(st.Transitions)-1].State; got != orchestrator.Success {
		t.Errorf("final state %v, want %v", got, orchestrator.Success)
	}
}

func TestBootExhausted(t *testing.T) {
	b := board(t, make([]byte, 0x20000), "")

	st := Boot(context.Background(), b, BootOpts{Strap: -1})
	if !errors.Is(st.Err, api.ErrAllExhausted) {
		t.Fatalf("Boot(): %v, want %v", st.Err, api.ErrAllExhausted)
	}
	var ee *orchestrator.ExhaustedError
	if !errors.As(st.Err, &ee) {
		t.Fatalf("Boot(): %T, want *orchestrator.ExhaustedError", st.Err)
	}
	if got, want := api.KindOf(ee.LastErr), api.ErrorBadMagic; got != want {
		t.Errorf("last error kind %v, want %v", got, want)
	}
	if got := st.Transitions[len(st.Transitions)-1].State; got != orchestrator.AllExhausted {
		t.Errorf("final state %v, want %v", got, orchestrator.AllExhausted)
	}
}

func TestBootStrapOverride(t *testing.T) {
	b := board(t, make([]byte, 0x20000), "")

	// Strap 0 isn't recognised, so only the boot ROM is left to try.
	st := Boot(context.Background(), b, BootOpts{Strap: 0})
	if !errors.Is(st.Err, api.ErrAllExhausted) {
		t.Fatalf("Boot(): %v, want %v", st.Err, api.ErrAllExhausted)
	}
	if got, want := st.Devices, []api.BootDevice{api.ReturnToROM()}; !cmp.Equal(got, want) {
		t.Errorf("Devices: %v, want %v", got, want)
	}
	if got := len(st.Result.Ledger); got != 0 {
		t.Errorf("ledger has %d entries, want 0", got)
	}
}

func TestBootDigestVerifier(t *testing.T) {
	payload := testonly.Payload(512)
	for _, test := range []struct {
		desc    string
		corrupt bool
		wantErr error
	}{
		{desc: "valid digest"},
		{desc: "wrong digest", corrupt: true, wantErr: api.ErrAllExhausted},
	} {
		t.Run(test.desc, func(t *testing.T) {
			img := testonly.Image(t, api.ImageHeader{Name: "signed"}, payload, make([]byte, 64), header.Options{})
			signed := len(img) - 64
			copy(img[signed:], verify.Digest(img[:signed]))
			if test.corrupt {
				img[signed] ^= 0x01
			}
			b := board(t, testonly.At(0x20000, rawOffset, img), "Verifier:\n  DigestOnly: true\n")

			st := Boot(context.Background(), b, BootOpts{Strap: -1})
			if !errors.Is(st.Err, test.wantErr) {
				t.Fatalf("Boot(): %v, want %v", st.Err, test.wantErr)
			}
			if test.corrupt {
				if got, want := st.Result.Ledger[0].Kind, api.ErrorAuthenticationFailed; got != want {
					t.Errorf("ledger error kind %v, want %v", got, want)
				}
			}
		})
	}
}

func TestBadExecutor(t *testing.T) {
	b := board(t, make([]byte, 0x20000), "")
	if st := Boot(context.Background(), b, BootOpts{Strap: -1, Executor: "jtag"}); st.Err == nil {
		t.Error("Boot(): nil error for unknown executor")
	}
}

func TestMainNeedsBoard(t *testing.T) {
	if err := Main(context.Background(), BootOpts{}); err == nil {
		t.Error("Main(): nil error without a board")
	}
}
