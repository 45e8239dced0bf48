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

package config

import (
	"context"
	"crypto/rand"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/poll"
	"github.com/google/bootchain/internal/storage"
	"github.com/google/bootchain/internal/strategy"
	"github.com/google/bootchain/internal/verify"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/mod/sumdb/note"
)

func openNothing(context.Context, api.BootDevice) (storage.ReadPort, error) {
	return nil, api.ErrDeviceNotPresent
}

func TestExampleConfig(t *testing.T) {
	b, err := os.ReadFile("example_board_config.yaml")
	if err != nil {
		t.Fatalf("ReadFile(): %v", err)
	}
	board, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse(): %v", err)
	}

	if got, want := board.Fallbacks, []api.BootDevice{api.MMC(1), api.SPI()}; !cmp.Equal(got, want) {
		t.Errorf("Fallbacks: %v, want %v", got, want)
	}
	if got, want := board.PollPolicy(), (poll.Policy{MaxPolls: 50, Interval: 5 * time.Millisecond}); got != want {
		t.Errorf("PollPolicy(): %+v, want %+v", got, want)
	}
	if got, want := board.Resolver().Resolve(board.Strap), []api.BootDevice{api.MMC(0), api.MMC(1), api.SPI(), api.ReturnToROM()}; !cmp.Equal(got, want) {
		t.Errorf("Resolve(0x%x): %v, want %v", board.Strap, got, want)
	}
	v, err := board.SignatureVerifier()
	if err != nil {
		t.Fatalf("SignatureVerifier(): %v", err)
	}
	if _, ok := v.(verify.DigestVerifier); !ok {
		t.Errorf("SignatureVerifier(): %T, want verify.DigestVerifier", v)
	}

	r, err := board.Registry(openNothing)
	if err != nil {
		t.Fatalf("Registry(): %v", err)
	}
	if got, want := r.Kinds(), []api.DeviceKind{api.KindMMC, api.KindSPI}; !cmp.Equal(got, want) {
		t.Errorf("Kinds(): %v, want %v", got, want)
	}
	ep, _ := r.Lookup(api.KindMMC)
	var kinds []api.StrategyKind
	for _, s := range ep.Chain {
		kinds = append(kinds, s.Kind())
	}
	want := []api.StrategyKind{api.StrategyHardwareBootPartition, api.StrategyRawSector, api.StrategyRawPartitionTable, api.StrategyFilesystemFile}
	if !cmp.Equal(kinds, want) {
		t.Errorf("mmc chain: %v, want %v", kinds, want)
	}
	if got, want := ep.Name, "usdhc"; got != want {
		t.Errorf("mmc loader name: %q, want %q", got, want)
	}
	if fs := ep.Chain[3].(strategy.FilesystemFile); fs.Table == nil {
		t.Error("fs-file strategy has no partition table")
	}
}

func TestValidate(t *testing.T) {
	for _, test := range []struct {
		desc    string
		yaml    string
		wantErr string
	}{
		{
			desc:    "no loaders",
			yaml:    "Name: x\n",
			wantErr: "missing field: Loaders",
		}, {
			desc:    "no strategies",
			yaml:    "Loaders:\n  - Kind: mmc\n",
			wantErr: "missing field: Strategies",
		}, {
			desc:    "duplicate loader",
			yaml:    "Loaders:\n  - Kind: mmc\n    Strategies: [{Type: raw-sector}]\n  - Kind: mmc\n    Strategies: [{Type: raw-sector}]\n",
			wantErr: "duplicate loader",
		}, {
			desc:    "unknown strategy",
			yaml:    "Loaders:\n  - Kind: mmc\n    Strategies: [{Type: tftp}]\n",
			wantErr: "unknown strategy type",
		}, {
			desc:    "unknown byte order",
			yaml:    "Loaders:\n  - Kind: mmc\n    Strategies: [{Type: raw-sector, ByteOrder: middle}]\n",
			wantErr: "unknown byte order",
		}, {
			desc:    "fs-file without path",
			yaml:    "Loaders:\n  - Kind: mmc\n    Strategies: [{Type: fs-file}]\n",
			wantErr: "missing field: Path",
		}, {
			desc:    "os boot without device tree",
			yaml:    "Loaders:\n  - Kind: mmc\n    Strategies: [{Type: fs-file, Path: /Image, OS: {Bootargs: quiet}}]\n",
			wantErr: "missing field: OS.DeviceTree",
		}, {
			desc:    "verifier without keys",
			yaml:    "Verifier: {Origin: boot}\nLoaders:\n  - Kind: mmc\n    Strategies: [{Type: raw-sector}]\n",
			wantErr: "missing field: Verifier.PublicKeys",
		}, {
			desc:    "medium without image",
			yaml:    "Media: [{Device: mmc0}]\nLoaders:\n  - Kind: mmc\n    Strategies: [{Type: raw-sector}]\n",
			wantErr: "missing field: Image",
		}, {
			desc:    "unknown device",
			yaml:    "Fallbacks: [floppy]\nLoaders:\n  - Kind: mmc\n    Strategies: [{Type: raw-sector}]\n",
			wantErr: "unknown boot device",
		}, {
			desc: "ok",
			yaml: "Loaders:\n  - Kind: mmc\n    Strategies: [{Type: raw-sector, Offset: 0x400}]\n",
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			_, err := Parse([]byte(test.yaml))
			switch {
			case test.wantErr == "" && err != nil:
				t.Fatalf("Parse(): %v", err)
			case test.wantErr != "" && (err == nil || !strings.Contains(err.Error(), test.wantErr)):
				t.Fatalf("Parse(): %v, want error containing %q", err, test.wantErr)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	board, err := Parse([]byte("Loaders:\n  - Kind: spi\n    Strategies: [{Type: raw-sector}]\n"))
	if err != nil {
		t.Fatalf("Parse(): %v", err)
	}
	if got, want := board.PollPolicy(), poll.DefaultPolicy; got != want {
		t.Errorf("PollPolicy(): %+v, want %+v", got, want)
	}
	if v, err := board.SignatureVerifier(); v != nil || err != nil {
		t.Errorf("SignatureVerifier(): %v, %v, want nil, nil", v, err)
	}
	r, err := board.Registry(openNothing)
	if err != nil {
		t.Fatalf("Registry(): %v", err)
	}
	if ep, _ := r.Lookup(api.KindSPI); ep.Name != "spi" {
		t.Errorf("loader name: %q, want %q", ep.Name, "spi")
	}
}

func TestNoteVerifierConfig(t *testing.T) {
	skey, vkey, err := note.GenerateKey(rand.Reader, "board")
	if err != nil {
		t.Fatalf("GenerateKey(): %v", err)
	}
	signer, err := note.NewSigner(skey)
	if err != nil {
		t.Fatalf("NewSigner(): %v", err)
	}
	board := Board{
		Verifier: &Verifier{Origin: "example.com/boot", PublicKeys: []string{vkey}},
		Loaders:  []Loader{{Kind: api.KindMMC, Strategies: []Strategy{{Type: "raw-sector"}}}},
	}
	if err := board.Validate(); err != nil {
		t.Fatalf("Validate(): %v", err)
	}
	v, err := board.SignatureVerifier()
	if err != nil {
		t.Fatalf("SignatureVerifier(): %v", err)
	}
	img := []byte("image")
	auth, err := verify.Sign(img, "example.com/boot", signer)
	if err != nil {
		t.Fatalf("Sign(): %v", err)
	}
	if err := v.Verify(img, auth); err != nil {
		t.Errorf("Verify(): %v", err)
	}
	if err := v.Verify([]byte("other"), auth); !errors.Is(err, api.ErrAuthenticationFailed) {
		t.Errorf("Verify(other): %v, want %v", err, api.ErrAuthenticationFailed)
	}
}
