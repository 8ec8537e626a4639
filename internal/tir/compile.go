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

package tir

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/scottamain/iree-sub001/internal/opts"
)

// Context carries per-compilation state through the pass pipeline. Name
// disambiguation counters live here, never in package state, so
// independent modules compile in parallel safely.
type Context struct {
	Module *Module
	Opts   opts.Options
	Cost   CostFn
	log    *logrus.Entry
	nexec  int
}

func NewContext(m *Module, o opts.Options) *Context {
	return &Context{
		Module: m,
		Opts:   o,
		log:    logrus.WithField("module", m.Name),
	}
}

// NextExecutableId returns a fresh ordinal for executable naming.
func (self *Context) NextExecutableId() int {
	n := self.nexec
	self.nexec++
	return n
}

type Pass interface {
	Apply(ctx *Context) error
}

type PassDescriptor struct {
	Pass Pass
	Name string
}

// Passes is the pipeline in its mandatory order: each stage establishes
// the invariants the next one assumes.
var Passes = [...]PassDescriptor{
	{Name: "Dispatch Region Formation", Pass: new(FormRegions)},
	{Name: "Dispatch Outlining", Pass: new(Outline)},
	{Name: "Resource Emplacement", Pass: new(Emplace)},
	{Name: "Interface Materialization", Pass: new(Materialize)},
	{Name: "Buffer Layout Flattening", Pass: new(Flatten)},
	{Name: "Subspan Offset Folding", Pass: new(FoldOffsets)},
}

// Compile runs the full pipeline over the module. The first failing pass
// aborts compilation; there is no partial-success mode.
func Compile(ctx *Context) error {
	if err := ctx.Module.Verify(); err != nil {
		return errors.WithMessage(err, "input module")
	}
	for _, p := range Passes {
		ctx.log.Debugf("running pass: %s", p.Name)
		if err := p.Pass.Apply(ctx); err != nil {
			ctx.log.Errorf("pass %q failed: %v", p.Name, err)
			return errors.WithMessage(err, p.Name)
		}
		if ctx.Opts.DebugDumps {
			ctx.log.Debugf("after %s:\n%s", p.Name, ctx.Module)
		}
	}
	return nil
}
