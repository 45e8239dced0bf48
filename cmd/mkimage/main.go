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

// mkimage packs a binary into a bootable image, optionally signing it and
// placing it into a raw medium image.
//
// Usage:
//
//	go run ./cmd/mkimage --payload=u-boot.bin --name=u-boot --load_addr=0x80000000 --output=mmc0.img --offset=0x10000
package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/google/bootchain/cmd/mkimage/impl"
)

var (
	payloadPath     = flag.String("payload", "", "File path to read the payload from")
	outputPath      = flag.String("output", "", "File path to write the image or medium to")
	name            = flag.String("name", "", "Image name, at most 20 bytes")
	kind            = flag.String("kind", "loader", "One of [loader, kernel, applet, signed]")
	loadAddr        = flag.Uint64("load_addr", 0, "Address the payload is loaded at")
	entryPoint      = flag.Uint64("entry", 0, "Entry point, defaults to the load address")
	magic           = flag.Uint("magic", 0, "Header magic, defaults to \"BOOT\"")
	littleEndian    = flag.Bool("little_endian", false, "Encode the header little endian")
	checksumPayload = flag.Bool("checksum_payload", true, "Cover the payload with the image checksum")
	blockSize       = flag.Uint64("block_size", 512, "Pad the payload to a multiple of this size, 0 to disable")
	offset          = flag.Uint64("offset", 0, "Byte offset of the image within the output")
	partitionTable  = flag.Bool("partition_table", false, "Write an MBR with one active partition starting at --offset")
	gptTable        = flag.Bool("gpt", false, "With --partition_table, write a GUID partition table instead of an MBR")
	origin          = flag.String("origin", "", "Origin line of the signed note")
	signingKey      = flag.String("signing_key", "", "File holding a note signer key to sign the image with")
	digest          = flag.Bool("digest", false, "Append the SHA-256 of the image as its signature region")
)

func main() {
	flag.Parse()

	if err := impl.Main(impl.MkImageOpts{
		PayloadPath:     *payloadPath,
		OutputPath:      *outputPath,
		Name:            *name,
		Kind:            *kind,
		LoadAddr:        *loadAddr,
		EntryPoint:      *entryPoint,
		Magic:           uint32(*magic),
		LittleEndian:    *littleEndian,
		ChecksumPayload: *checksumPayload,
		BlockSize:       *blockSize,
		Offset:          *offset,
		PartitionTable:  *partitionTable,
		GPT:             *gptTable,
		Origin:          *origin,
		SigningKey:      *signingKey,
		Digest:          *digest,
	}); err != nil {
		glog.Exit(err.Error())
	}
}
