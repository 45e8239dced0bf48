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

// Package handoff builds the description of the next program to run and
// transfers control to it.
package handoff

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
)

// NewRecord derives the handoff record for a validated image.
//
// params and paramsAddr describe an optional parameter blob, such as a
// device tree, to place in memory before the jump.
func NewRecord(h api.ImageHeader, d api.BootDevice, s api.StrategyKind, params []byte, paramsAddr uint64) api.HandoffRecord {
	return api.HandoffRecord{
		LoadAddr:   h.LoadAddr,
		EntryPoint: h.EntryPoint,
		Size:       h.PayloadSize,
		Kind:       h.Kind,
		Name:       h.Name,
		Device:     d,
		Strategy:   s,
		ParamsAddr: paramsAddr,
		Params:     params,
	}
}

// Chain represents the next stage in the boot process.
type Chain func(ctx context.Context) error

// Executor transfers control to a loaded image.
type Executor interface {
	// Execute runs the image described by rec, whose payload is the first
	// rec.Size bytes of payload.
	Execute(ctx context.Context, rec api.HandoffRecord, payload []byte) error
}

// Prepare returns the Chain which hands rec to e.
func Prepare(e Executor, rec api.HandoffRecord, payload []byte) (Chain, error) {
	if uint64(len(payload)) < rec.Size {
		return nil, fmt.Errorf("payload of %d bytes, record claims %d: %w", len(payload), rec.Size, api.ErrTruncated)
	}
	glog.Infof("Prepared to boot %v", rec)
	return func(ctx context.Context) error {
		return e.Execute(ctx, rec, payload[:rec.Size])
	}, nil
}

// LogExecutor only logs the handoff. It's used for dry runs.
type LogExecutor struct{}

// Execute implements Executor.
func (LogExecutor) Execute(_ context.Context, rec api.HandoffRecord, payload []byte) error {
	glog.Infof("Jumping to 0x%x (%d bytes at 0x%x)", rec.EntryPoint, len(payload), rec.LoadAddr)
	if len(rec.Params) > 0 {
		glog.Infof("Parameters: %d bytes at 0x%x", len(rec.Params), rec.ParamsAddr)
	}
	return nil
}
