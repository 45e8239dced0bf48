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
	"bytes"
	"fmt"

	"github.com/u-root/u-root/pkg/dt"
)

// SetBootargs returns a copy of the flattened device tree dtb with
// /chosen/bootargs set to cmdline. The /chosen node is created if needed.
func SetBootargs(dtb []byte, cmdline string) ([]byte, error) {
	fdt, err := dt.ReadFDT(bytes.NewReader(dtb))
	if err != nil {
		return nil, fmt.Errorf("parsing device tree: %w", err)
	}
	if fdt.RootNode == nil {
		return nil, fmt.Errorf("device tree has no root node")
	}

	bootargs := dt.Property{
		Name:  "bootargs",
		Value: []byte(cmdline + "\x00"),
	}
	var chosen *dt.Node
	for _, node := range fdt.RootNode.Children {
		if node.Name == "chosen" {
			chosen = node
			break
		}
	}
	if chosen == nil {
		chosen = &dt.Node{Name: "chosen"}
		fdt.RootNode.Children = append(fdt.RootNode.Children, chosen)
	}
	replaced := false
	for i, p := range chosen.Properties {
		if p.Name == bootargs.Name {
			chosen.Properties[i] = bootargs
			replaced = true
		}
	}
	if !replaced {
		chosen.Properties = append(chosen.Properties, bootargs)
	}

	buf := new(bytes.Buffer)
	if _, err := fdt.Write(buf); err != nil {
		return nil, fmt.Errorf("writing device tree: %w", err)
	}
	return buf.Bytes(), nil
}
