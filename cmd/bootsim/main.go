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

// bootsim runs the boot pipeline against emulated media described by a board
// file.
//
// Usage:
//
//	go run ./cmd/bootsim --logtostderr --board=board.yaml [--strap=0x41] [--executor=wasm] [--listen=:8000]
//
// If --listen is set the outcome of the boot can be inspected over HTTP until
// the process is interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/google/bootchain/cmd/bootsim/impl"
)

var (
	boardFile = flag.String("board", "", "Path to the YAML board description")
	strap     = flag.Int64("strap", -1, "Boot strap word, overrides the board's if non-negative")
	executor  = flag.String("executor", "log", "One of [log, wasm]")
	wasmEntry = flag.String("wasm_entry", "app_main", "Exported function to run for applet images")
	listen    = flag.String("listen", "", "If set, address:port to serve boot diagnostics on")
)

func main() {
	flag.Parse()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := impl.Main(ctx, impl.BootOpts{
		BoardFile: *boardFile,
		Strap:     *strap,
		Executor:  *executor,
		WasmEntry: *wasmEntry,
		Listen:    *listen,
	}); err != nil {
		glog.Exit(err.Error())
	}
}
