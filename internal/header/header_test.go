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

package header

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/checksum"
	"github.com/google/go-cmp/cmp"
)

var defaultOpts = Options{Magic: api.DefaultMagic}

func baseHeader() api.ImageHeader {
	return api.ImageHeader{
		Magic:      api.DefaultMagic,
		Kind:       api.ImageLoader,
		LoadAddr:   0x8000_0000,
		EntryPoint: 0x8000_0000,
		Name:       "loader",
	}
}

// rawSeal encodes h with a correct header sum but performs none of Seal's
// validation, so that invalid headers can be built.
func rawSeal(t *testing.T, h api.ImageHeader, order binary.ByteOrder) []byte {
	t.Helper()
	var e checksum.Engine = checksum.CRC32{}
	if ke, ok := checksum.DefaultTable().ForKind(h.Kind); ok {
		e = ke
	}
	psum := uint32(h.Checksum)
	h.Checksum = 0
	hsum := uint32(e.Compute(Encode(h, order)))
	h.Checksum = uint64(hsum)<<32 | uint64(psum)
	return Encode(h, order)
}

func TestSealParseRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xa5}, 512)
	for _, test := range []struct {
		name  string
		kind  api.ImageKind
		flags uint8
		order binary.ByteOrder
	}{
		{name: "loader", kind: api.ImageLoader},
		{name: "kernel with payload sum", kind: api.ImageKernel, flags: api.FlagChecksumPayload},
		{name: "applet little endian", kind: api.ImageApplet, order: binary.LittleEndian},
		{name: "signed", kind: api.ImageSigned, flags: api.FlagChecksumPayload},
	} {
		t.Run(test.name, func(t *testing.T) {
			opts := Options{Magic: api.DefaultMagic, Order: test.order, Granularity: 512}
			h := baseHeader()
			h.Kind = test.kind
			h.Flags = test.flags
			h.AuthSize = 17
			sealed, b, err := Seal(h, payload, opts)
			if err != nil {
				t.Fatalf("Seal: %v", err)
			}
			got, err := Parse(b, opts)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(sealed, got); diff != "" {
				t.Fatalf("Got diff: %v", diff)
			}
			if err := VerifyPayload(got, payload, opts); err != nil {
				t.Fatalf("VerifyPayload: %v", err)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	good := baseHeader()
	good.Version = api.HeaderVersion
	good.PayloadSize = 1024

	for _, test := range []struct {
		name    string
		b       func(t *testing.T) []byte
		opts    Options
		wantErr error
	}{
		{
			name:    "empty",
			b:       func(*testing.T) []byte { return nil },
			wantErr: api.ErrTruncated,
		}, {
			name: "short",
			b: func(t *testing.T) []byte {
				return rawSeal(t, good, nil)[:api.HeaderSize-1]
			},
			wantErr: api.ErrTruncated,
		}, {
			name: "bad magic",
			b: func(t *testing.T) []byte {
				h := good
				h.Magic = 0x27051956
				return rawSeal(t, h, nil)
			},
			wantErr: api.ErrBadMagic,
		}, {
			name: "wrong byte order",
			b: func(t *testing.T) []byte {
				return rawSeal(t, good, binary.LittleEndian)
			},
			wantErr: api.ErrBadMagic,
		}, {
			name: "zero payload with valid checksum",
			b: func(t *testing.T) []byte {
				h := good
				h.PayloadSize = 0
				return rawSeal(t, h, nil)
			},
			wantErr: api.ErrTruncated,
		}, {
			name: "zero payload with bad checksum",
			b: func(t *testing.T) []byte {
				h := good
				h.PayloadSize = 0
				h.Checksum = 0xdeadbeef_00000000
				return Encode(h, nil)
			},
			wantErr: api.ErrTruncated,
		}, {
			name: "zero payload with unknown version and kind",
			b: func(t *testing.T) []byte {
				h := good
				h.PayloadSize = 0
				h.Version = 9
				h.Kind = api.ImageKind(0x7f)
				return Encode(h, nil)
			},
			wantErr: api.ErrTruncated,
		}, {
			name: "unknown version",
			b: func(t *testing.T) []byte {
				h := good
				h.Version = 2
				return rawSeal(t, h, nil)
			},
			wantErr: api.ErrUnsupportedImage,
		}, {
			name: "unknown kind",
			b: func(t *testing.T) []byte {
				h := good
				h.Kind = api.ImageKind(200)
				return rawSeal(t, h, nil)
			},
			wantErr: api.ErrUnsupportedImage,
		}, {
			name: "misaligned",
			b: func(t *testing.T) []byte {
				h := good
				h.PayloadSize = 1000
				return rawSeal(t, h, nil)
			},
			opts:    Options{Magic: api.DefaultMagic, Granularity: 512},
			wantErr: api.ErrMisaligned,
		}, {
			name: "load address overflow",
			b: func(t *testing.T) []byte {
				h := good
				h.LoadAddr = math.MaxUint64 - 512
				return rawSeal(t, h, nil)
			},
			wantErr: api.ErrOverflow,
		}, {
			name: "image size overflow",
			b: func(t *testing.T) []byte {
				h := good
				h.LoadAddr = 0
				h.PayloadSize = math.MaxUint64 - 100
				h.AuthSize = 64
				return rawSeal(t, h, nil)
			},
			wantErr: api.ErrOverflow,
		}, {
			name: "corrupt name",
			b: func(t *testing.T) []byte {
				b := rawSeal(t, good, nil)
				b[offName] ^= 0x20
				return b
			},
			wantErr: api.ErrChecksumMismatch,
		}, {
			name: "corrupt header sum",
			b: func(t *testing.T) []byte {
				b := rawSeal(t, good, nil)
				b[offChecksum] ^= 0x01
				return b
			},
			wantErr: api.ErrChecksumMismatch,
		}, {
			name: "payload sum without flag",
			b: func(t *testing.T) []byte {
				h := good
				h.Checksum = 0x1234
				return rawSeal(t, h, nil)
			},
			wantErr: api.ErrChecksumMismatch,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			opts := test.opts
			if opts.Magic == 0 {
				opts = defaultOpts
			}
			_, err := Parse(test.b(t), opts)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("Parse: got %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestParseIgnoresTrailingBytes(t *testing.T) {
	_, b, err := Seal(baseHeader(), make([]byte, 64), defaultOpts)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	b = append(b, 0xff, 0xff, 0xff)
	if _, err := Parse(b, defaultOpts); err != nil {
		t.Fatalf("Parse: %v", err)
	}
}

func TestVerifyPayload(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	h := baseHeader()
	h.Kind = api.ImageKernel
	h.Flags = api.FlagChecksumPayload
	sealed, _, err := Seal(h, payload, defaultOpts)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	for i := range payload {
		p := bytes.Clone(payload)
		p[i] ^= 0x80
		if err := VerifyPayload(sealed, p, defaultOpts); !errors.Is(err, api.ErrChecksumMismatch) {
			t.Fatalf("flip at %d: got %v, want %v", i, err, api.ErrChecksumMismatch)
		}
	}
	if err := VerifyPayload(sealed, payload[1:], defaultOpts); !errors.Is(err, api.ErrTruncated) {
		t.Errorf("short payload: got %v, want %v", err, api.ErrTruncated)
	}

	noFlag, _, err := Seal(baseHeader(), payload, defaultOpts)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if err := VerifyPayload(noFlag, []byte("anything"), defaultOpts); err != nil {
		t.Errorf("VerifyPayload without flag: %v", err)
	}
}

func TestSealRejectsLongName(t *testing.T) {
	h := baseHeader()
	h.Name = "a-name-which-is-far-too-long"
	if _, _, err := Seal(h, []byte{1}, defaultOpts); err == nil {
		t.Fatal("Seal: want error for long name")
	}
}

func TestImageSize(t *testing.T) {
	got, err := ImageSize(api.ImageHeader{PayloadSize: 1024, AuthSize: 100})
	if err != nil {
		t.Fatalf("ImageSize: %v", err)
	}
	if want := uint64(api.HeaderSize + 1024 + 100); got != want {
		t.Errorf("ImageSize: got %d, want %d", got, want)
	}
	if _, err := ImageSize(api.ImageHeader{PayloadSize: math.MaxUint64}); !errors.Is(err, api.ErrOverflow) {
		t.Errorf("ImageSize: got %v, want %v", err, api.ErrOverflow)
	}
}
