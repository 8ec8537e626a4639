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

// Package tensorc lowers tensor-program modules into dispatch
// executables with a fixed binding ABI: it forms dispatch regions,
// outlines them into executables, emplaces results into their
// destination buffers, materializes descriptor-set interfaces, and
// flattens kernel-visible buffers, producing the encoded pipeline
// layouts the runtime loader binds against.
package tensorc

import (
	"golang.org/x/sync/errgroup"

	"github.com/scottamain/iree-sub001/internal/target"
	"github.com/scottamain/iree-sub001/internal/tir"
)

// Artifact is the result of compiling one module: the transformed IR
// plus the encoded pipeline layout of every executable export.
type Artifact struct {
	Module  *tir.Module
	Targets []target.Target
	layouts map[[2]string][]byte
}

// LayoutFor returns the encoded pipeline layout of one export.
func (self *Artifact) LayoutFor(executable string, export string) ([]byte, bool) {
	enc, ok := self.layouts[[2]string{executable, export}]
	return enc, ok
}

// Compile runs the full lowering pipeline over a module. Compilation is
// all-or-nothing: the first structural or ABI violation fails the whole
// module.
func Compile(m *tir.Module, options ...Option) (*Artifact, error) {
	cfg := defaultConfig()
	for _, fn := range options {
		fn(&cfg)
	}

	ctx := tir.NewContext(m, cfg.opts)
	ctx.Cost = cfg.cost
	if err := tir.Compile(ctx); err != nil {
		return nil, err
	}

	ret := &Artifact{
		Module:  m,
		Targets: cfg.enum(),
		layouts: make(map[[2]string][]byte),
	}
	for _, ex := range m.Execs {
		for _, ep := range ex.Exports {
			if ep.Layout != nil {
				ret.layouts[[2]string{ex.Name, ep.Name}] = ep.Layout.Encode()
			}
		}
	}
	return ret, nil
}

// CompileAll compiles independent modules concurrently. Each module gets
// its own compilation context, so no state is shared between them.
func CompileAll(ms []*tir.Module, options ...Option) ([]*Artifact, error) {
	cfg := defaultConfig()
	for _, fn := range options {
		fn(&cfg)
	}

	ret := make([]*Artifact, len(ms))
	var g errgroup.Group
	if cfg.opts.Workers > 0 {
		g.SetLimit(cfg.opts.Workers)
	}
	for i, m := range ms {
		i, m := i, m
		g.Go(func() error {
			a, err := Compile(m, options...)
			if err != nil {
				return err
			}
			ret[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ret, nil
}
