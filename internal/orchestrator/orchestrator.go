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

// Package orchestrator drives the search for a bootable image across the
// devices and strategies available to the loader.
//
// The search is a small state machine:
//
//	Idle -> ProbingDevice(d) -> TryingStrategy(d, s)
//	TryingStrategy(d, s) -> Success
//	TryingStrategy(d, s) -> StrategyFailed -> TryingStrategy(d, s') | DeviceExhausted(d)
//	DeviceExhausted(d) -> ProbingDevice(d') | AllExhausted
//
// Every strategy attempt is recorded in a ledger which is returned to the
// caller whatever the outcome.
package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/google/bootchain/internal/handoff"
	"github.com/google/bootchain/internal/header"
	"github.com/google/bootchain/internal/poll"
	"github.com/google/bootchain/internal/registry"
	"github.com/google/bootchain/internal/storage"
	"github.com/google/bootchain/internal/strategy"
)

// State is a state of the search.
type State int

const (
	Idle State = iota
	ProbingDevice
	TryingStrategy
	StrategyFailed
	DeviceExhausted
	Success
	AllExhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ProbingDevice:
		return "ProbingDevice"
	case TryingStrategy:
		return "TryingStrategy"
	case StrategyFailed:
		return "StrategyFailed"
	case DeviceExhausted:
		return "DeviceExhausted"
	case Success:
		return "Success"
	case AllExhausted:
		return "AllExhausted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transition is reported to an Observer on every state change.
type Transition struct {
	State    State
	Device   api.BootDevice
	Strategy api.StrategyKind
	Err      error
}

// Observer is notified of state transitions.
type Observer func(Transition)

// Options configure an Orchestrator.
type Options struct {
	Registry *registry.Registry
	// Poll bounds every wait for a device.
	Poll poll.Policy
	// Verifier, if set, must accept the signature region of every image.
	// Signatures cover the big endian encoding of the header followed by
	// the payload.
	Verifier api.SignatureVerifier
	// Observer, if set, is told about every state transition.
	Observer Observer
}

// Orchestrator finds and loads the image to boot.
// It holds no state between calls to Run.
type Orchestrator struct {
	opts Options
}

// New returns an Orchestrator configured by opts.
func New(opts Options) *Orchestrator {
	return &Orchestrator{opts: opts}
}

// Result is the outcome of Run.
type Result struct {
	// Record describes the image to hand off to. It's only set on success.
	Record api.HandoffRecord
	// Ledger lists every strategy attempt in the order it was made.
	Ledger []api.LedgerEntry
}

// ExhaustedError is returned by Run when no device yielded a bootable image.
// It matches api.ErrAllExhausted with errors.Is.
type ExhaustedError struct {
	LastDevice   api.BootDevice
	LastStrategy api.StrategyKind
	// LastErr is the last failure seen, nil if no device could even be
	// tried.
	LastErr  error
	Attempts int
}

func (e *ExhaustedError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("%v after %d attempts (last device %s)", api.ErrAllExhausted, e.Attempts, e.LastDevice)
	}
	return fmt.Sprintf("%v after %d attempts (last %s/%s: %s: %v)", api.ErrAllExhausted, e.Attempts, e.LastDevice, e.LastStrategy, api.KindOf(e.LastErr), e.LastErr)
}

// Is reports whether target is api.ErrAllExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == api.ErrAllExhausted
}

// Unwrap returns the last failure.
func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// run holds the state of a single call to Run.
type run struct {
	o      *Orchestrator
	dst    []byte
	ledger []api.LedgerEntry
	last   ExhaustedError
}

func (r *run) observe(s State, d api.BootDevice, k api.StrategyKind, err error) {
	glog.V(1).Infof("%s %s/%s %v", s, d, k, err)
	if r.o.opts.Observer != nil {
		r.o.opts.Observer(Transition{State: s, Device: d, Strategy: k, Err: err})
	}
}

// Run tries devices in order until one yields a valid image, which is
// copied to the start of dst.
//
// dst is only written once an image has passed all checks. If nothing can
// be booted the error is an *ExhaustedError.
func (o *Orchestrator) Run(ctx context.Context, devices []api.BootDevice, dst []byte) (Result, error) {
	if o.opts.Registry == nil || o.opts.Registry.Len() == 0 {
		return Result{}, fmt.Errorf("no loader entry points: %w", api.ErrRegistryMisconfigured)
	}
	r := &run{o: o, dst: dst}
	r.observe(Idle, api.None(), api.StrategyNone, nil)

	for _, d := range devices {
		if err := ctx.Err(); err != nil {
			return Result{Ledger: r.ledger}, fmt.Errorf("boot abandoned: %w", err)
		}
		r.observe(ProbingDevice, d, api.StrategyNone, nil)
		rec, ok := r.tryDevice(ctx, d)
		if ok {
			r.observe(Success, d, rec.Strategy, nil)
			glog.Infof("Booting %v", rec)
			return Result{Record: rec, Ledger: r.ledger}, nil
		}
		r.observe(DeviceExhausted, d, api.StrategyNone, nil)
	}

	exhausted := r.last
	exhausted.Attempts = len(r.ledger)
	if exhausted.LastErr == nil && len(devices) > 0 {
		exhausted.LastDevice = devices[len(devices)-1]
	}
	r.observe(AllExhausted, exhausted.LastDevice, exhausted.LastStrategy, &exhausted)
	glog.Errorf("No bootable image: %v", &exhausted)
	return Result{Ledger: r.ledger}, &exhausted
}

// tryDevice runs the strategy chain for d.
func (r *run) tryDevice(ctx context.Context, d api.BootDevice) (api.HandoffRecord, bool) {
	ep, ok := r.o.opts.Registry.Lookup(d.Kind)
	if !ok {
		glog.V(1).Infof("No loader for %s", d)
		return api.HandoffRecord{}, false
	}
	r.last.LastDevice, r.last.LastStrategy = d, api.StrategyNone
	port, err := ep.Open(ctx, d)
	if err != nil {
		glog.Warningf("%s: can't open %s: %v", ep.Name, d, err)
		r.last.LastErr = err
		return api.HandoffRecord{}, false
	}
	defer release(d, port)

	for _, s := range ep.Chain {
		r.observe(TryingStrategy, d, s.Kind(), nil)
		r.last.LastStrategy = s.Kind()
		rec, h, err := r.attempt(ctx, d, port, s)
		entry := api.LedgerEntry{Device: d, Strategy: s.Kind()}
		if err == nil {
			entry.Header = &h
			r.ledger = append(r.ledger, entry)
			return rec, true
		}
		entry.Err, entry.Kind = err, api.KindOf(err)
		r.ledger = append(r.ledger, entry)
		r.last.LastErr = err
		r.observe(StrategyFailed, d, s.Kind(), err)

		switch Classify(err) {
		case Integrity:
			glog.Warningf("%s/%s: integrity check failed: %v", d, s.Kind(), err)
		case DeviceFatal:
			glog.Warningf("%s/%s: abandoning device: %v", d, s.Kind(), err)
			return api.HandoffRecord{}, false
		default:
			glog.V(1).Infof("%s/%s: %v", d, s.Kind(), err)
		}
	}
	return api.HandoffRecord{}, false
}

// attempt runs a single strategy to completion.
func (r *run) attempt(ctx context.Context, d api.BootDevice, port storage.ReadPort, s strategy.Strategy) (api.HandoffRecord, api.ImageHeader, error) {
	lc := strategy.NewLoadContext(d, port, r.o.opts.Poll)
	if err := s.Probe(ctx, lc); err != nil {
		return api.HandoffRecord{}, api.ImageHeader{}, err
	}
	h, err := s.LoadHeader(ctx, lc)
	if err != nil {
		return api.HandoffRecord{}, api.ImageHeader{}, err
	}
	if h.PayloadSize > uint64(len(r.dst)) {
		return api.HandoffRecord{}, api.ImageHeader{}, fmt.Errorf("%d byte payload, destination holds %d: %w", h.PayloadSize, len(r.dst), api.ErrPayloadTooLarge)
	}
	staging := make([]byte, h.PayloadSize)
	auth, err := s.LoadPayload(ctx, lc, h, staging)
	if err != nil {
		return api.HandoffRecord{}, api.ImageHeader{}, err
	}
	if v := r.o.opts.Verifier; v != nil {
		image := append(header.Encode(h, nil), staging...)
		if err := v.Verify(image, auth); err != nil {
			return api.HandoffRecord{}, api.ImageHeader{}, fmt.Errorf("%q: %w", h.Name, err)
		}
	}
	copy(r.dst, staging)
	return handoff.NewRecord(h, d, s.Kind(), lc.Params, lc.ParamsAddr), h, nil
}

// release closes port if it needs closing.
func release(d api.BootDevice, port storage.ReadPort) {
	c, ok := port.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		glog.Warningf("%s: close: %v", d, err)
	}
}
