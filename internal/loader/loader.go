/*
 * Copyright 2023 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package loader is the runtime side of the binding contract: it decodes
// the pipeline layouts emitted at compile time, validates concrete
// buffer bindings against them, and drives kernel execution. It never
// re-derives a layout; the compile-time annotation is the single source
// of truth, which is what keeps concurrent executions of one export
// consistent.
package loader

import (
	"github.com/pkg/errors"

	"github.com/scottamain/iree-sub001/internal/abi"
)

// Buffer is one concrete resource bound to a descriptor slot.
type Buffer struct {
	Data     []byte
	ReadOnly bool
}

// Environment is the per-process execution context handed to kernels.
type Environment struct {
	Name string
}

// DispatchState is the per-dispatch view a kernel receives: the bound
// resources in (set, binding) order, the push constants, and the grid.
type DispatchState struct {
	PushConstants  []uint32
	Bindings       []Buffer
	WorkgroupCount [3]uint32
}

// WorkgroupState identifies one workgroup of a dispatch.
type WorkgroupState struct {
	WorkgroupID [3]uint32
}

// KernelFn is the fixed calling convention of every compiled entry
// point: environment, per-dispatch state, per-workgroup state, returning
// a status code (zero for success).
type KernelFn func(env *Environment, dispatch *DispatchState, workgroup *WorkgroupState) int32

// Export is one loaded entry point.
type Export struct {
	Name   string
	Layout *abi.PipelineLayout
	Kernel KernelFn
}

// Executable is a loaded set of entry points sharing an environment.
type Executable struct {
	env     Environment
	exports map[string]*Export
}

// Load decodes the encoded layouts and pairs each with its kernel. Every
// export must come with both halves of the contract.
func Load(name string, layouts map[string][]byte, kernels map[string]KernelFn) (*Executable, error) {
	ex := &Executable{
		env:     Environment{Name: name},
		exports: make(map[string]*Export, len(layouts)),
	}
	for export, enc := range layouts {
		layout, err := abi.Decode(enc)
		if err != nil {
			return nil, errors.WithMessagef(err, "export %q", export)
		}
		fn, ok := kernels[export]
		if !ok {
			return nil, errors.Errorf("loader: export %q has no kernel", export)
		}
		ex.exports[export] = &Export{Name: export, Layout: layout, Kernel: fn}
	}
	return ex, nil
}

// LookupExport returns a loaded entry point by name.
func (self *Executable) LookupExport(name string) (*Export, bool) {
	ep, ok := self.exports[name]
	return ep, ok
}

// validate checks a dispatch state against the export's layout: binding
// count, read-only discipline, and push constant count. A mismatch is a
// caller bug and aborts the dispatch before any kernel runs.
func (self *Export) validate(state *DispatchState) error {
	if n := self.Layout.NumBindings(); len(state.Bindings) != n {
		return errors.Errorf("loader: export %q: bound %d buffers, layout wants %d", self.Name, len(state.Bindings), n)
	}
	if n := int(self.Layout.PushConstants); len(state.PushConstants) != n {
		return errors.Errorf("loader: export %q: %d push constants, layout wants %d", self.Name, len(state.PushConstants), n)
	}
	i := 0
	for _, set := range self.Layout.Sets {
		for _, b := range set.Bindings {
			buf := state.Bindings[i]
			if buf.Data == nil {
				return errors.Errorf("loader: export %q: set %d binding %d not bound", self.Name, set.Ordinal, b.Ordinal)
			}
			if buf.ReadOnly && !b.ReadOnly() {
				return errors.Errorf("loader: export %q: set %d binding %d is writable but bound read-only", self.Name, set.Ordinal, b.Ordinal)
			}
			i++
		}
	}
	return nil
}
