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

package ext4

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/storage/testonly"
)

func TestReadFileWithoutFilesystem(t *testing.T) {
	for _, test := range []struct {
		name string
		data []byte
	}{
		{name: "blank", data: make([]byte, 64*1024)},
		{name: "empty", data: nil},
		{name: "superblock magic only", data: superblockMagicOnly()},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := FS{}.ReadFile(testonly.NewMemDev(t, test.data), "/boot/image")
			if !errors.Is(err, api.ErrFileNotFound) {
				t.Fatalf("ReadFile: %v, want %v", err, api.ErrFileNotFound)
			}
		})
	}
}

// superblockMagicOnly returns a medium whose superblock carries the ext4
// magic and nothing else.
func superblockMagicOnly() []byte {
	b := make([]byte, 64*1024)
	binary.LittleEndian.PutUint16(b[1024+0x38:], 0xef53)
	return b
}
