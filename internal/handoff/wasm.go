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

package handoff

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/perlin-network/life/exec"
	wasm_validation "github.com/perlin-network/life/wasm-validation"
)

// appletImports resolves the imports available to applets run by
// WasmExecutor.
type appletImports struct {
	rec api.HandoffRecord
}

// ResolveFunc implements exec.ImportResolver.
func (r *appletImports) ResolveFunc(module, field string) exec.FunctionImport {
	if module != "env" {
		panic(fmt.Errorf("unknown module: %s", module))
	}
	switch field {
	case "__life_log":
		return func(vm *exec.VirtualMachine) int64 {
			ptr := int(uint32(vm.GetCurrentFrame().Locals[0]))
			msgLen := int(uint32(vm.GetCurrentFrame().Locals[1]))
			if ptr+msgLen > len(vm.Memory) {
				return -1
			}
			glog.Infof("[%s] %s", r.rec.Name, vm.Memory[ptr:ptr+msgLen])
			return 0
		}
	case "print_i64":
		return func(vm *exec.VirtualMachine) int64 {
			glog.Infof("[%s] print_i64: %d", r.rec.Name, vm.GetCurrentFrame().Locals[0])
			return 0
		}
	case "print":
		return func(vm *exec.VirtualMachine) int64 {
			ptr := int(uint32(vm.GetCurrentFrame().Locals[0]))
			n := 0
			for ptr+n < len(vm.Memory) && vm.Memory[ptr+n] != 0 {
				n++
			}
			glog.Infof("[%s] print: %s", r.rec.Name, vm.Memory[ptr:ptr+n])
			return 0
		}
	}
	panic(fmt.Errorf("unknown field: %s", field))
}

// ResolveGlobal implements exec.ImportResolver.
func (r *appletImports) ResolveGlobal(module, field string) int64 {
	if module != "env" {
		panic(fmt.Errorf("unknown module: %s", module))
	}
	switch field {
	case "__boot_load_addr":
		return int64(r.rec.LoadAddr)
	case "__boot_size":
		return int64(r.rec.Size)
	}
	panic(fmt.Errorf("unknown field: %s", field))
}

// WasmExecutor runs applet images in the Life WebAssembly VM.
type WasmExecutor struct {
	// Entry is the exported function to run. If the applet doesn't export
	// it, function 0 is run instead.
	Entry string
	// MemoryPages is the default number of 64KiB memory pages.
	MemoryPages int
}

// Execute implements Executor.
func (w WasmExecutor) Execute(ctx context.Context, rec api.HandoffRecord, payload []byte) (err error) {
	if rec.Kind != api.ImageApplet {
		return fmt.Errorf("can't run %s image as an applet: %w", rec.Kind, api.ErrUnsupportedImage)
	}
	if err := wasm_validation.ValidateWasm(payload); err != nil {
		return fmt.Errorf("invalid applet: %v: %w", err, api.ErrUnsupportedImage)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("applet %q: %v", rec.Name, r)
		}
	}()

	pages := w.MemoryPages
	if pages == 0 {
		pages = 128
	}
	vm, err := exec.NewVirtualMachine(payload, exec.VMConfig{
		DefaultMemoryPages: pages,
		DefaultTableSize:   65536,
	}, &appletImports{rec: rec}, nil)
	if err != nil {
		return fmt.Errorf("instantiating applet: %w", err)
	}

	entryID, ok := vm.GetFunctionExport(w.Entry)
	if !ok {
		glog.Warningf("Entry function %q not found; starting from 0", w.Entry)
		entryID = 0
	}

	start := time.Now()
	if vm.Module.Base.Start != nil {
		if _, err := vm.Run(int(vm.Module.Base.Start.Index)); err != nil {
			vm.PrintStackTrace()
			return fmt.Errorf("applet start function: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ret, err := vm.Run(entryID)
	if err != nil {
		vm.PrintStackTrace()
		return fmt.Errorf("applet entry function: %w", err)
	}
	glog.Infof("Applet %q returned %d after %v", rec.Name, ret, time.Since(start))
	return nil
}
