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
	"fmt"
)

// Outline converts every dispatch region into a standalone executable
// with a single export and replaces the region with a dispatch call site
// carrying the same operands, tied indices and dynamic dims. Executables
// are named after the region's highest-cost operation; the name is
// advisory, used for diagnostics and profiling only.
type Outline struct{}

func (self Outline) Apply(ctx *Context) error {
	for _, f := range ctx.Module.Funcs {
		/* regions are processed in program order */
		var regions []*Op
		for _, id := range f.Entry().Ops {
			if p := f.OpOf(id); p.Kind == OpRegion {
				regions = append(regions, p)
			}
		}
		for _, region := range regions {
			if err := self.outline(ctx, f, region); err != nil {
				return err
			}
		}
	}
	return nil
}

func (self Outline) outline(ctx *Context, f *Func, region *Op) error {
	body := f.RegionBody(region)
	yield := f.Terminator(body)
	if yield == nil || len(body.Ops) <= 1 {
		return StructuralError{Pass: "outline", Func: f.Name, Reason: "cannot dispatch an empty region"}
	}

	/* workload summary from the dominant op */
	summary, workload := SummarizeWorkload(f, body, ctx.Cost)
	execName := fmt.Sprintf("%s_dispatch_%d", f.Name, ctx.NextExecutableId())
	exportName := execName
	if summary != "" {
		exportName = fmt.Sprintf("%s_%s", execName, summary)
	}

	/* clone the body into a closed, argument-only function */
	g := NewFunc(exportName)
	vmap := make(map[ValueId]ValueId)
	for i, v := range region.Args {
		vmap[v] = g.NewParam(fmt.Sprintf("arg%d", i), f.ValueOf(v).Type)
	}
	for _, id := range body.Ops {
		p := f.OpOf(id)
		if p.Kind == OpInvalid {
			continue
		}
		if p.Kind == OpYield {
			g.Append(g.Entry(), OpReturn, mapValues(p.Args, vmap), nil, nil)
			continue
		}
		if p.Kind == OpRegion {
			return StructuralError{Pass: "outline", Func: f.Name, Reason: "nested dispatch region"}
		}
		CloneOpInto(g, g.Entry(), f, p, vmap)
	}

	/* new top-level executable with the function as sole export */
	ctx.Module.Execs = append(ctx.Module.Execs, &Executable{
		Name:    execName,
		Exports: []*Export{{Name: exportName, Func: g}},
	})

	/* swap the region for a dispatch call site */
	at := Before(f, region)
	bb := f.BlockOf(at.Block)
	types := make([]Type, len(region.Results))
	for i, r := range region.Results {
		types[i] = f.ValueOf(r).Type
	}
	aux := &DispatchAux{Executable: execName, Export: exportName, Workload: workload}
	call := f.InsertAt(bb, at.Index, OpDispatch, append([]ValueId(nil), region.Args...), types, aux)
	copy(call.Ties, region.Ties)
	for _, dims := range region.ResultDims {
		call.ResultDims = append(call.ResultDims, append([]ValueId(nil), dims...))
	}

	/* republish operand dims so the shape oracle can walk downward */
	callAt := Before(f, call)
	call.OperandDims = make([][]ValueId, len(call.Args))
	for i, a := range call.Args {
		t := f.ValueOf(a).Type
		if !t.IsResource() || t.NumDynDims() == 0 {
			continue
		}
		if dims, ok := f.FindDynamicDims(a, callAt); ok {
			call.OperandDims[i] = append([]ValueId(nil), dims...)
		}
	}

	/* rewire readers and drop the region */
	for i, r := range region.Results {
		f.ReplaceAllUses(r, call.Results[i])
	}
	f.walkBlock(body, func(p *Op) { f.Erase(p) })
	f.Erase(region)
	return nil
}
