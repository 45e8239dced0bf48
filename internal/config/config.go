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

// Package config describes a board: its boot media, the loaders available for
// each kind of device and how images are checked.
package config

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/fs/ext4"
	"github.com/google/bootchain/internal/header"
	"github.com/google/bootchain/internal/partition"
	"github.com/google/bootchain/internal/poll"
	"github.com/google/bootchain/internal/registry"
	"github.com/google/bootchain/internal/resolver"
	"github.com/google/bootchain/internal/storage"
	"github.com/google/bootchain/internal/strategy"
	"github.com/google/bootchain/internal/verify"
	"gopkg.in/yaml.v3"
)

// Board is the top level board description.
type Board struct {
	// Name is used in logs.
	Name string `yaml:"Name"`
	// Strap is the boot strap word used when none is given on the command
	// line.
	Strap uint32 `yaml:"Strap"`
	// Fallbacks are devices tried after the strapped one, in order.
	Fallbacks []api.BootDevice `yaml:"Fallbacks"`
	Poll      Poll             `yaml:"Poll"`
	// LoadBufferSize is the size of the destination buffer images are
	// loaded into.
	LoadBufferSize uint64 `yaml:"LoadBufferSize"`
	// Verifier configures signature checks. Signatures aren't checked if
	// it's absent.
	Verifier *Verifier `yaml:"Verifier"`
	// Media describes emulated boot media.
	Media []Medium `yaml:"Media"`
	// Loaders lists the strategy chain for each device kind.
	Loaders []Loader `yaml:"Loaders"`
}

// Poll bounds waits for devices.
type Poll struct {
	MaxPolls uint          `yaml:"MaxPolls"`
	Interval time.Duration `yaml:"Interval"`
	Timeout  time.Duration `yaml:"Timeout"`
}

// Verifier configures image signature checks.
type Verifier struct {
	// Origin is the expected first line of signed notes.
	Origin string `yaml:"Origin"`
	// PublicKeys are note verifier keys.
	PublicKeys []string `yaml:"PublicKeys"`
	// DigestOnly accepts a bare SHA-256 digest instead of a signed note.
	DigestOnly bool `yaml:"DigestOnly"`
}

// Medium describes an emulated boot medium backed by files.
type Medium struct {
	Device api.BootDevice `yaml:"Device"`
	// Image is the path of the user area image.
	Image string `yaml:"Image"`
	// BootPartitions are the paths of up to two hardware boot partition
	// images.
	BootPartitions []string `yaml:"BootPartitions"`
	// BootPartitionEnable is the BOOT_PARTITION_ENABLE field reported by
	// the medium.
	BootPartitionEnable uint32 `yaml:"BootPartitionEnable"`
	// BlockSize defaults to 512.
	BlockSize uint64 `yaml:"BlockSize"`
	// NotReadyPolls is the number of readiness polls which fail before the
	// medium is ready. Negative means never.
	NotReadyPolls int `yaml:"NotReadyPolls"`
}

// Loader is the strategy chain for one kind of device.
type Loader struct {
	Kind       api.DeviceKind `yaml:"Kind"`
	Name       string         `yaml:"Name"`
	Strategies []Strategy     `yaml:"Strategies"`
}

// Strategy configures one loading strategy.
type Strategy struct {
	// Type is one of the api.StrategyKind names.
	Type string `yaml:"Type"`
	// Offset is the byte offset of the image, relative to the medium,
	// boot partition or partition table entry.
	Offset uint64 `yaml:"Offset"`
	// Magic overrides api.DefaultMagic.
	Magic uint32 `yaml:"Magic"`
	// ByteOrder is "big" (default) or "little".
	ByteOrder string `yaml:"ByteOrder"`
	// Partition selects the partition table entry to use rather than the
	// active one.
	Partition uint32 `yaml:"Partition"`
	// UsePartitionTable makes fs-file strategies look for the filesystem
	// in the boot partition rather than at the start of the medium.
	UsePartitionTable bool `yaml:"UsePartitionTable"`
	// Path is the image file path for fs-file strategies.
	Path string `yaml:"Path"`
	// MaxFileSize bounds the files fs-file strategies will read.
	MaxFileSize int64 `yaml:"MaxFileSize"`
	// OS enables direct kernel boot for fs-file strategies.
	OS *OS `yaml:"OS"`
}

// OS configures direct kernel boot.
type OS struct {
	DeviceTree string `yaml:"DeviceTree"`
	Bootargs   string `yaml:"Bootargs"`
	ParamsAddr uint64 `yaml:"ParamsAddr"`
}

// Load reads and validates the board description at path.
func Load(path string) (*Board, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board config: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a board description.
func Parse(b []byte) (*Board, error) {
	var board Board
	if err := yaml.Unmarshal(b, &board); err != nil {
		return nil, fmt.Errorf("failed to parse board config: %w", err)
	}
	if err := board.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board config: %w", err)
	}
	return &board, nil
}

// Validate checks the description is complete and consistent.
func (b Board) Validate() error {
	if len(b.Loaders) == 0 {
		return errors.New("missing field: Loaders")
	}
	seen := make(map[api.DeviceKind]bool)
	for _, l := range b.Loaders {
		if seen[l.Kind] {
			return fmt.Errorf("duplicate loader for %s", l.Kind)
		}
		seen[l.Kind] = true
		if _, err := l.Chain(); err != nil {
			return fmt.Errorf("loader %s: %v", l.Kind, err)
		}
	}
	if v := b.Verifier; v != nil && !v.DigestOnly {
		if v.Origin == "" {
			return errors.New("missing field: Verifier.Origin")
		}
		if len(v.PublicKeys) == 0 {
			return errors.New("missing field: Verifier.PublicKeys")
		}
	}
	for _, m := range b.Media {
		if m.Image == "" {
			return fmt.Errorf("medium %s: missing field: Image", m.Device)
		}
		if len(m.BootPartitions) > 2 {
			return fmt.Errorf("medium %s: %d boot partitions, at most 2 allowed", m.Device, len(m.BootPartitions))
		}
	}
	return nil
}

// Resolver returns the boot device resolver for the board.
func (b Board) Resolver() resolver.Resolver {
	return resolver.Resolver{Fallbacks: b.Fallbacks}
}

// PollPolicy returns the device wait bounds, or poll.DefaultPolicy if none
// are configured.
func (b Board) PollPolicy() poll.Policy {
	if b.Poll == (Poll{}) {
		return poll.DefaultPolicy
	}
	return poll.Policy{MaxPolls: b.Poll.MaxPolls, Interval: b.Poll.Interval, Timeout: b.Poll.Timeout}
}

// SignatureVerifier returns the configured verifier, or nil if signatures
// aren't checked.
func (b Board) SignatureVerifier() (api.SignatureVerifier, error) {
	switch {
	case b.Verifier == nil:
		return nil, nil
	case b.Verifier.DigestOnly:
		return verify.DigestVerifier{}, nil
	}
	v, err := verify.NewNoteVerifier(b.Verifier.Origin, b.Verifier.PublicKeys...)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Registry builds the loader registry for the board, opening media with
// open.
func (b Board) Registry(open func(context.Context, api.BootDevice) (storage.ReadPort, error)) (*registry.Registry, error) {
	var entries []registry.EntryPoint
	for _, l := range b.Loaders {
		chain, err := l.Chain()
		if err != nil {
			return nil, fmt.Errorf("loader %s: %v: %w", l.Kind, err, api.ErrRegistryMisconfigured)
		}
		name := l.Name
		if name == "" {
			name = l.Kind.String()
		}
		entries = append(entries, registry.EntryPoint{Kind: l.Kind, Name: name, Open: open, Chain: chain})
	}
	return registry.New(entries...)
}

// Chain returns the strategies of the loader, in order.
func (l Loader) Chain() ([]strategy.Strategy, error) {
	if len(l.Strategies) == 0 {
		return nil, errors.New("missing field: Strategies")
	}
	var chain []strategy.Strategy
	for i, s := range l.Strategies {
		st, err := s.Build()
		if err != nil {
			return nil, fmt.Errorf("strategy %d: %v", i, err)
		}
		chain = append(chain, st)
	}
	return chain, nil
}

// Build returns the configured strategy.
func (s Strategy) Build() (strategy.Strategy, error) {
	opts := header.Options{Magic: s.Magic}
	switch strings.ToLower(s.ByteOrder) {
	case "", "big":
		opts.Order = binary.BigEndian
	case "little":
		opts.Order = binary.LittleEndian
	default:
		return nil, fmt.Errorf("unknown byte order %q", s.ByteOrder)
	}
	table := partition.MBR{Partition: s.Partition}

	switch s.Type {
	case api.StrategyHardwareBootPartition.String():
		return strategy.HardwareBootPartition{Offset: s.Offset, Header: opts}, nil
	case api.StrategyRawSector.String():
		return strategy.RawSector{Offset: s.Offset, Header: opts}, nil
	case api.StrategyRawPartitionTable.String():
		return strategy.RawPartitionTable{Table: table, Offset: s.Offset, Header: opts}, nil
	case api.StrategyFilesystemFile.String():
		if s.Path == "" {
			return nil, errors.New("missing field: Path")
		}
		fs := strategy.FilesystemFile{FS: ext4.FS{MaxFileSize: s.MaxFileSize}, Path: s.Path, Header: opts}
		if s.UsePartitionTable {
			fs.Table = table
		}
		if s.OS != nil {
			if s.OS.DeviceTree == "" {
				return nil, errors.New("missing field: OS.DeviceTree")
			}
			fs.OS = &strategy.OSBoot{DeviceTree: s.OS.DeviceTree, Bootargs: s.OS.Bootargs, ParamsAddr: s.OS.ParamsAddr}
		}
		return fs, nil
	}
	return nil, fmt.Errorf("unknown strategy type %q", s.Type)
}
