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

// Package target enumerates the deployment targets an artifact is
// compiled against. The compiler core only consumes the enumeration
// callback; per-target code emission happens in the backends.
package target

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Target identifies one deployment target of a compiled artifact.
type Target struct {
	Name     string
	Arch     string
	Features []string
}

// EnumerateFn lists the targets to compile for.
type EnumerateFn func() []Target

// Host probes the machine the compiler runs on and describes it as a
// target, including the ISA features relevant to kernel codegen.
func Host() Target {
	t := Target{
		Name: "host",
		Arch: runtime.GOARCH,
	}
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX2, "avx2"},
		{cpuid.AVX512F, "avx512f"},
		{cpuid.FMA3, "fma"},
		{cpuid.ASIMD, "neon"},
		{cpuid.SVE, "sve"},
	} {
		if cpuid.CPU.Has(f.id) {
			t.Features = append(t.Features, f.name)
		}
	}
	return t
}

// DefaultEnumerator compiles for the host only.
func DefaultEnumerator() []Target {
	return []Target{Host()}
}
