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

// Package impl is the implementation of the boot emulator.
package impl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/google/bootchain/devices/dummy"
	"github.com/google/bootchain/internal/config"
	"github.com/google/bootchain/internal/handoff"
	"github.com/google/bootchain/internal/orchestrator"
	"github.com/gorilla/mux"
)

// DefaultLoadBufferSize is used for boards which don't set LoadBufferSize.
const DefaultLoadBufferSize = 16 << 20

// BootOpts encapsulates emulator parameters.
type BootOpts struct {
	BoardFile string
	// Strap overrides the board's strap word if non-negative.
	Strap int64
	// Executor is "log" or "wasm".
	Executor  string
	WasmEntry string
	// Listen, if set, is the address to serve diagnostics on once the boot
	// has finished.
	Listen string
}

// Status is the outcome of an emulated boot.
type Status struct {
	Board   string
	Strap   uint32
	Devices []api.BootDevice
	Result  orchestrator.Result
	// Transitions lists every state the search passed through.
	Transitions []orchestrator.Transition
	// Err is set if the boot failed.
	Err error
}

// Main loads the board, boots it and optionally serves diagnostics.
func Main(ctx context.Context, opts BootOpts) error {
	if opts.BoardFile == "" {
		return errors.New("board is required")
	}
	board, err := config.Load(opts.BoardFile)
	if err != nil {
		return err
	}
	st := Boot(ctx, board, opts)
	if opts.Listen != "" {
		if err := serve(ctx, opts.Listen, NewServer(st)); err != nil {
			glog.Warningf("diagnostics server: %v", err)
		}
	}
	return st.Err
}

// Boot runs the pipeline for board and hands off to the loaded image.
func Boot(ctx context.Context, board *config.Board, opts BootOpts) *Status {
	st := &Status{Board: board.Name, Strap: board.Strap}
	if opts.Strap >= 0 {
		st.Strap = uint32(opts.Strap)
	}
	st.Err = boot(ctx, board, opts, st)
	if errors.Is(st.Err, api.ErrAllExhausted) {
		glog.Errorf("%s: returning to boot ROM", board.Name)
	}
	return st
}

func boot(ctx context.Context, board *config.Board, opts BootOpts, st *Status) error {
	exec, err := executor(opts)
	if err != nil {
		return err
	}
	reg, err := board.Registry(dummy.NewMedia(board.Media).Open)
	if err != nil {
		return err
	}
	verifier, err := board.SignatureVerifier()
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	st.Devices = board.Resolver().Resolve(st.Strap)
	glog.Infof("%s: strap 0x%08x, boot order %v", board.Name, st.Strap, st.Devices)

	size := board.LoadBufferSize
	if size == 0 {
		size = DefaultLoadBufferSize
	}
	dst := make([]byte, size)
	o := orchestrator.New(orchestrator.Options{
		Registry: reg,
		Poll:     board.PollPolicy(),
		Verifier: verifier,
		Observer: func(t orchestrator.Transition) {
			st.Transitions = append(st.Transitions, t)
		},
	})
	res, err := o.Run(ctx, st.Devices, dst)
	st.Result = res
	for _, e := range res.Ledger {
		glog.Infof("  %v", e)
	}
	if err != nil {
		return err
	}

	chain, err := handoff.Prepare(exec, res.Record, dst)
	if err != nil {
		return err
	}
	return chain(ctx)
}

func executor(opts BootOpts) (handoff.Executor, error) {
	switch opts.Executor {
	case "", "log":
		return handoff.LogExecutor{}, nil
	case "wasm":
		return handoff.WasmExecutor{Entry: opts.WasmEntry}, nil
	}
	return nil, fmt.Errorf("executor must be one of: 'log', 'wasm', got %q", opts.Executor)
}

func serve(ctx context.Context, addr string, s *Server) error {
	r := mux.NewRouter()
	s.RegisterHandlers(r)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			glog.Warningf("shutdown: %v", err)
		}
	}()
	glog.Infof("Serving boot diagnostics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
