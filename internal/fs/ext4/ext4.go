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

// Package ext4 reads files from ext4 filesystems on boot media.
package ext4

import (
	"fmt"
	"io"
	"strings"

	"github.com/dsoprea/go-ext4"
	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/storage"
)

// FS implements strategy.FilesystemProvider for ext4.
type FS struct {
	// MaxFileSize bounds the size of files which will be read. Zero means
	// no limit.
	MaxFileSize int64
}

// ReadFile implements strategy.FilesystemProvider.
//
// A missing or malformed filesystem reads as a missing file, so the caller
// falls back to its next strategy. Errors from the medium itself keep their
// own kind.
func (f FS) ReadFile(p storage.ReadPort, fullPath string) (buf []byte, err error) {
	// go-ext4 panics on some malformed structures.
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("ext4: reading %q: %v: %w", fullPath, r, api.ErrFileNotFound)
		}
	}()

	buf, err = f.readFile(storage.NewReader(p), fullPath)
	if err != nil && api.KindOf(err) == api.ErrorUnknown {
		return nil, fmt.Errorf("%v: %w", err, api.ErrFileNotFound)
	}
	return buf, err
}

func (f FS) readFile(rs io.ReadSeeker, fullPath string) ([]byte, error) {
	bgdl, err := groupDescriptors(rs)
	if err != nil {
		return nil, fmt.Errorf("no ext4 filesystem: %w", err)
	}
	inodeNumber, err := lookup(rs, bgdl, fullPath)
	if err != nil {
		return nil, err
	}
	bgd, err := bgdl.GetWithAbsoluteInode(inodeNumber)
	if err != nil {
		return nil, fmt.Errorf("ext4: inode %d: %w", inodeNumber, err)
	}
	inode, err := ext4.NewInodeWithReadSeeker(bgd, rs, inodeNumber)
	if err != nil {
		return nil, fmt.Errorf("ext4: inode %d: %w", inodeNumber, err)
	}
	if f.MaxFileSize > 0 && int64(inode.Size()) > f.MaxFileSize {
		return nil, fmt.Errorf("%q is %d bytes, limit is %d: %w", fullPath, inode.Size(), f.MaxFileSize, api.ErrPayloadTooLarge)
	}

	en := ext4.NewExtentNavigatorWithReadSeeker(rs, inode)
	buf, err := io.ReadAll(ext4.NewInodeReader(en))
	if err != nil {
		return nil, fmt.Errorf("ext4: reading %q: %w", fullPath, err)
	}
	glog.V(1).Infof("ext4: read %d bytes from %q", len(buf), fullPath)
	return buf, nil
}

func groupDescriptors(rs io.ReadSeeker) (*ext4.BlockGroupDescriptorList, error) {
	if _, err := rs.Seek(ext4.Superblock0Offset, io.SeekStart); err != nil {
		return nil, err
	}
	sb, err := ext4.NewSuperblockWithReader(rs)
	if err != nil {
		return nil, err
	}
	return ext4.NewBlockGroupDescriptorListWithReadSeeker(rs, sb)
}

// lookup returns the inode number of the file at fullPath.
func lookup(rs io.ReadSeeker, bgdl *ext4.BlockGroupDescriptorList, fullPath string) (int, error) {
	want := strings.Trim(fullPath, "/")
	bgd, err := bgdl.GetWithAbsoluteInode(ext4.InodeRootDirectory)
	if err != nil {
		return 0, fmt.Errorf("ext4: root directory: %w", err)
	}
	dw, err := ext4.NewDirectoryWalk(rs, bgd, ext4.InodeRootDirectory)
	if err != nil {
		return 0, fmt.Errorf("ext4: root directory: %w", err)
	}
	for {
		p, de, err := dw.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return 0, fmt.Errorf("ext4: walking directories: %w", err)
		}
		if p == want && !de.IsDirectory() {
			return int(de.Data().Inode), nil
		}
	}
	return 0, fmt.Errorf("ext4: %q: %w", fullPath, api.ErrFileNotFound)
}
