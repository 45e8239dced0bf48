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

// Package storage describes the block media images are loaded from, and
// provides helpers for reading arbitrary byte ranges from them.
package storage

import (
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
)

// ReadPort is the read-only view of a boot medium.
//
// Implementations only need to support reads whose offset and length are
// multiples of BlockSize; ReadAligned takes care of rounding.
type ReadPort interface {
	// BlockSize returns the transfer granularity of the medium in bytes.
	BlockSize() uint64

	// Read reads length bytes starting at offset into the start of into,
	// which is at least length bytes long. It returns the number of bytes
	// read, which is only smaller than length if the medium ends first.
	Read(offset, length uint64, into []byte) (uint64, error)
}

// ReadyChecker is implemented by media which need time to become usable
// after power up, e.g. cards which are still initialising.
type ReadyChecker interface {
	Ready() (bool, error)
}

// Sizer is implemented by media which know their own size.
type Sizer interface {
	Size() uint64
}

// Partition numbers understood by BootPartitioner.SelectPartition.
const (
	PartitionUser  uint32 = 0
	PartitionBoot1 uint32 = 1
	PartitionBoot2 uint32 = 2
)

// BootPartitioner is implemented by embedded flash media with hardware boot
// partitions (eMMC).
type BootPartitioner interface {
	// BootPartitionConfig returns the raw PARTITION_CONFIG register.
	BootPartitionConfig() (uint32, error)
	// SelectPartition switches subsequent reads to the given partition.
	SelectPartition(p uint32) error
}

// BootPartitionEnable extracts the BOOT_PARTITION_ENABLE field from a
// PARTITION_CONFIG value: 0 means booting is disabled, 1 and 2 name a boot
// partition and 7 names the user area.
func BootPartitionEnable(config uint32) uint32 {
	return (config >> 3) & 0x7
}

// ReadAligned reads len(b) bytes at byte offset off into b.
//
// The request is widened to whole blocks, so the port only ever sees aligned
// reads. If the medium ends before b is filled, the number of bytes copied is
// returned along with an error wrapping api.ErrTruncated.
func ReadAligned(p ReadPort, off uint64, b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	bs := p.BlockSize()
	if bs == 0 {
		return 0, fmt.Errorf("zero block size: %w", api.ErrDeviceUnavailable)
	}
	end, carry := bits.Add64(off, uint64(len(b)), 0)
	if carry != 0 {
		return 0, fmt.Errorf("read at 0x%x: %w", off, api.ErrOverflow)
	}
	start := off - off%bs
	alignedEnd := end
	if r := end % bs; r != 0 {
		alignedEnd, carry = bits.Add64(end, bs-r, 0)
		if carry != 0 {
			return 0, fmt.Errorf("read at 0x%x: %w", off, api.ErrOverflow)
		}
	}

	length := alignedEnd - start
	buf, scratch := b, start != off || length != uint64(len(b))
	if scratch {
		buf = make([]byte, length)
	}
	glog.V(2).Infof("read 0x%x+%d (aligned 0x%x+%d)", off, len(b), start, length)
	n, err := p.Read(start, length, buf)
	if err != nil {
		return 0, err
	}
	if n > length {
		n = length
	}

	head := off - start
	var got int
	if n > head {
		got = int(min(n-head, uint64(len(b))))
	}
	if scratch {
		copy(b, buf[head:head+uint64(got)])
	}
	if got < len(b) {
		return got, fmt.Errorf("read %d of %d bytes at 0x%x: %w", got, len(b), off, api.ErrTruncated)
	}
	return got, nil
}

// Window is a ReadPort restricted to a contiguous region of another port.
type Window struct {
	port  ReadPort
	start uint64
	size  uint64
}

// NewWindow returns a view of size bytes of p, starting at byte offset start,
// which must be block aligned.
func NewWindow(p ReadPort, start, size uint64) (*Window, error) {
	if bs := p.BlockSize(); bs == 0 || start%bs != 0 {
		return nil, fmt.Errorf("window start 0x%x with block size %d: %w", start, bs, api.ErrMisaligned)
	}
	if _, carry := bits.Add64(start, size, 0); carry != 0 {
		return nil, fmt.Errorf("window 0x%x+%d: %w", start, size, api.ErrOverflow)
	}
	return &Window{port: p, start: start, size: size}, nil
}

// BlockSize implements ReadPort.
func (w *Window) BlockSize() uint64 {
	return w.port.BlockSize()
}

// Size implements Sizer.
func (w *Window) Size() uint64 {
	return w.size
}

// Read implements ReadPort. Reads are clipped at the end of the window.
func (w *Window) Read(offset, length uint64, into []byte) (uint64, error) {
	if offset >= w.size {
		return 0, nil
	}
	if rem := w.size - offset; length > rem {
		// The underlying port still needs a whole number of blocks.
		bs := w.port.BlockSize()
		length = rem
		if r := length % bs; r != 0 {
			length += bs - r
		}
		n, err := w.port.Read(w.start+offset, length, into)
		return min(n, rem), err
	}
	return w.port.Read(w.start+offset, length, into)
}

// Reader adapts a ReadPort to io.Reader, io.Seeker and io.ReaderAt, for
// consumers such as filesystem drivers.
type Reader struct {
	port ReadPort
	size uint64
	pos  int64
}

// NewReader returns a Reader over p. If p implements Sizer, reads stop at its
// end; otherwise they stop where the medium does.
func NewReader(p ReadPort) *Reader {
	size := uint64(1<<63 - 1)
	if s, ok := p.(Sizer); ok {
		size = s.Size()
	}
	return &Reader{port: p, size: size}
}

// ReadAt implements io.ReaderAt.
func (r *Reader) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if uint64(off) >= r.size {
		return 0, io.EOF
	}
	if rem := r.size - uint64(off); uint64(len(b)) > rem {
		b = b[:rem]
	}
	n, err := ReadAligned(r.port, uint64(off), b)
	if errors.Is(err, api.ErrTruncated) {
		return n, io.EOF
	}
	return n, err
}

// Read implements io.Reader.
func (r *Reader) Read(b []byte) (int, error) {
	n, err := r.ReadAt(b, r.pos)
	r.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Seek implements io.Seeker.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += r.pos
	case io.SeekEnd:
		offset += int64(r.size)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if offset < 0 {
		return 0, errors.New("negative position")
	}
	r.pos = offset
	return offset, nil
}
