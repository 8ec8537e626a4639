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
	"fmt"

	"github.com/scottamain/iree-sub001/internal/opts"
	"github.com/scottamain/iree-sub001/internal/target"
	"github.com/scottamain/iree-sub001/internal/tir"
)

type _Config struct {
	opts opts.Options
	enum target.EnumerateFn
	cost tir.CostFn
}

func defaultConfig() _Config {
	return _Config{
		opts: opts.GetDefaultOptions(),
		enum: target.DefaultEnumerator,
	}
}

// Option is the property setter function for compilation options.
type Option func(*_Config)

// WithMaxRegionOps caps how many operations a dispatch region may absorb
// during formation. Zero removes the cap.
func WithMaxRegionOps(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("tensorc: invalid region op limit: %d", n))
	}
	return func(c *_Config) { c.opts.MaxRegionOps = n }
}

// WithoutEmplacement disables the in-place result rewrite. Every
// dispatch result then keeps its own allocation and update copies stay.
// Intended for debugging placement decisions.
func WithoutEmplacement() Option {
	return func(c *_Config) { c.opts.NoEmplace = true }
}

// WithDebugDumps logs the module after every pass and dumps binding
// maps. Very verbose.
func WithDebugDumps() Option {
	return func(c *_Config) { c.opts.DebugDumps = true }
}

// WithWorkers bounds the parallelism of CompileAll. Zero means one
// goroutine per module.
func WithWorkers(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("tensorc: invalid worker count: %d", n))
	}
	return func(c *_Config) { c.opts.Workers = n }
}

// WithTargetEnumerator overrides how deployment targets are discovered.
// The default compiles for the host.
func WithTargetEnumerator(fn target.EnumerateFn) Option {
	if fn == nil {
		panic("tensorc: nil target enumerator")
	}
	return func(c *_Config) { c.enum = fn }
}

// WithCostModel overrides the workload cost estimate used to summarize
// and name outlined dispatches. Advisory only, never affects
// correctness.
func WithCostModel(fn tir.CostFn) Option {
	return func(c *_Config) { c.cost = fn }
}
