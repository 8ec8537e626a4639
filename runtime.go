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

package tensorc

import (
	"github.com/scottamain/iree-sub001/internal/loader"
)

// Runtime-side types. The compile half of the contract is the encoded
// pipeline layout returned by Artifact.LayoutFor; the runtime half binds
// buffers and push constants against it and runs the kernel grid.
type (
	Buffer         = loader.Buffer
	Environment    = loader.Environment
	DispatchState  = loader.DispatchState
	WorkgroupState = loader.WorkgroupState
	KernelFn       = loader.KernelFn
	Export         = loader.Export
	Executable     = loader.Executable
)

// Load decodes the encoded pipeline layouts and pairs each export with
// its kernel. Layouts typically come from Artifact.LayoutFor; kernels
// come from whatever backend compiled the export bodies.
func Load(name string, layouts map[string][]byte, kernels map[string]KernelFn) (*Executable, error) {
	return loader.Load(name, layouts, kernels)
}
