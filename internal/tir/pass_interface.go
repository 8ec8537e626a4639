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
	"github.com/davecgh/go-spew/spew"

	"github.com/scottamain/iree-sub001/internal/abi"
)

// Materialize assigns every export its pipeline layout, rewrites the
// export body to read all inputs through interface accessors instead of
// positional arguments, and annotates every call site with the binding
// map it must honor. The annotation is written once and later stages
// never re-derive it: concurrent executions of the same export must
// observe one identical layout.
type Materialize struct{}

// _ExportKey identifies one export across the module.
type _ExportKey struct {
	Exec   string
	Export string
}

// _Site is one dispatch call site of an export.
type _Site struct {
	fn *Func
	op *Op
}

func (self Materialize) Apply(ctx *Context) error {
	sites := self.collectSites(ctx.Module)

	for _, ex := range ctx.Module.Execs {
		for _, ep := range ex.Exports {
			key := _ExportKey{Exec: ex.Name, Export: ep.Name}
			var err error
			if ex.External {
				err = self.materializeExternal(ep, sites[key])
			} else {
				err = self.materializeExport(ep, sites[key])
			}
			if err != nil {
				return err
			}
			if ctx.Opts.DebugDumps {
				spew.Config.SortKeys = true
				spew.Dump(key, ep.Layout)
			}
		}
	}
	return nil
}

func (self Materialize) collectSites(m *Module) map[_ExportKey][]_Site {
	sites := make(map[_ExportKey][]_Site)
	for _, f := range m.Funcs {
		fn := f
		f.Walk(func(p *Op) {
			if p.Kind != OpDispatch {
				return
			}
			aux := p.Aux.(*DispatchAux)
			key := _ExportKey{Exec: aux.Executable, Export: aux.Export}
			sites[key] = append(sites[key], _Site{fn: fn, op: p})
		})
	}
	return sites
}

// isPushConstant reports whether an argument type rides as a push
// constant: only 32-bit scalars qualify.
func isPushConstant(t Type) bool {
	return t.IsScalar() && t.Elem.Size() == 4
}

// tieConsensus returns the operand position that result r is tied to at
// every call site, or NoTie when any site disagrees or leaves it untied.
func tieConsensus(sites []_Site, r int) int {
	tie := NoTie
	for i, s := range sites {
		t := s.op.Tie(r)
		if i == 0 {
			tie = t
		} else if t != tie {
			return NoTie
		}
	}
	return tie
}

// materializeExport runs the owned-export state machine; terminal states
// are "materialized" (layout set, body rewritten, sites annotated) or an
// ABI error.
func (self Materialize) materializeExport(ep *Export, sites []_Site) error {
	g := ep.Func

	/* step 1: every argument must be a bindable resource or a 32-bit
	 * scalar, anything else is an unsupported ABI */
	for i, v := range g.Params {
		t := g.ValueOf(v).Type
		if !t.IsResource() && !isPushConstant(t) {
			return ABIError{Export: ep.Name, Arg: i, Type: t}
		}
	}

	/* step 2: partition arguments and build the resource role list; the
	 * export's returned results are output roles, deduplicated with an
	 * input role when every call site ties them to the same operand */
	ret := g.Terminator(g.Entry())
	pushByParam := make(map[int]uint32)
	bindingByParam := make(map[int]int)
	var roles []abi.ResourceRole

	writtenArgs := make(map[int]bool)
	if ret != nil && len(sites) != 0 {
		for r := range ret.Args {
			if t := tieConsensus(sites, r); t != NoTie {
				writtenArgs[t] = true
			}
		}
	}

	npc := 0
	for i, v := range g.Params {
		t := g.ValueOf(v).Type
		if isPushConstant(t) {
			pushByParam[i] = uint32(npc)
			npc++
			continue
		}
		size := int64(-1)
		if n, ok := t.StaticByteSize(); ok {
			size = n
		}
		bindingByParam[i] = len(roles)
		roles = append(roles, abi.ResourceRole{ByteSize: size, ReadOnly: !writtenArgs[i]})
	}

	/* output roles for untied results */
	bindingByResult := make(map[int]int)
	if ret != nil {
		for r, v := range ret.Args {
			if t := tieConsensus(sites, r); len(sites) != 0 && t != NoTie && t < len(g.Params) {
				/* shares the storage of a declared input */
				bindingByResult[r] = bindingByParam[t]
				continue
			}
			size := int64(-1)
			if n, ok := g.ValueOf(v).Type.StaticByteSize(); ok {
				size = n
			}
			bindingByResult[r] = len(roles)
			roles = append(roles, abi.ResourceRole{ByteSize: size, ReadOnly: false})
		}
	}

	layout := abi.AssignLayout(npc, roles)
	if err := layout.Validate(); err != nil {
		return err
	}

	/* step 3: clone the function without arguments, reading every former
	 * argument through an accessor op */
	ep.Func = self.rewriteBody(g, layout, pushByParam, bindingByParam)
	ep.Layout = layout

	/* step 4: annotate the call sites, recorded once and for all */
	for _, s := range sites {
		self.annotate(s.op, layout, pushByParam, bindingByParam, bindingByResult)
	}
	return nil
}

func (self Materialize) rewriteBody(g *Func, layout *abi.PipelineLayout, pushByParam map[int]uint32, bindingByParam map[int]int) *Func {
	h := NewFunc(g.Name)
	b := NewBuilder(h)
	vmap := make(map[ValueId]ValueId)

	/* interfaces carry no positional arguments, splice one accessor per
	 * former argument */
	for i, v := range g.Params {
		t := g.ValueOf(v).Type
		if ord, ok := pushByParam[i]; ok {
			vmap[v] = b.ConstantLoad(ord, t)
			continue
		}
		role := bindingByParam[i]
		bd := layout.Sets[0].Bindings[role]
		vmap[v] = b.BindingSubspan(0, bd.Ordinal, 0, Buffer(t.Elem, t.Dims...))
	}

	for _, id := range g.Entry().Ops {
		p := g.OpOf(id)
		if p.Kind == OpInvalid {
			continue
		}
		CloneOpInto(h, h.Entry(), g, p, vmap)
	}
	return h
}

// annotate writes the call site's binding map: one entry per operand
// position, then one per result position.
func (self Materialize) annotate(p *Op, layout *abi.PipelineLayout, pushByParam map[int]uint32, bindingByParam map[int]int, bindingByResult map[int]int) {
	aux := p.Aux.(*DispatchAux)
	refs := make([]BindingRef, 0, len(p.Args)+len(p.Results))

	for i := range p.Args {
		if ord, ok := pushByParam[i]; ok {
			refs = append(refs, BindingRef{PushConstant: true, Ordinal: ord})
			continue
		}
		role, ok := bindingByParam[i]
		if !ok {
			/* operand appended by emplacement: shares the role of the
			 * result tied to it */
			role = self.roleOfTiedResult(p, i, bindingByResult)
		}
		refs = append(refs, BindingRef{Set: 0, Binding: layout.Sets[0].Bindings[role].Ordinal})
	}
	for r := range p.Results {
		role := bindingByResult[r]
		refs = append(refs, BindingRef{Set: 0, Binding: layout.Sets[0].Bindings[role].Ordinal})
	}
	aux.Bindings = refs
}

func (self Materialize) roleOfTiedResult(p *Op, arg int, bindingByResult map[int]int) int {
	for r, t := range p.Ties {
		if t == arg {
			return bindingByResult[r]
		}
	}
	return bindingByResult[0]
}

// materializeExternal handles hand-authored executables: the declared
// layout wins and is validated against every call site; with no
// declaration a dense default layout is inferred from the first site.
func (self Materialize) materializeExternal(ep *Export, sites []_Site) error {
	layout := ep.Declared
	if layout == nil {
		if len(sites) == 0 {
			return nil
		}
		npc, nres := siteShape(sites[0].op, sites[0].fn)
		layout = abi.DenseDefaultLayout(npc, nres)
	}
	if err := layout.Validate(); err != nil {
		return err
	}

	/* every call site must agree with the layout */
	for _, s := range sites {
		npc, nres := siteShape(s.op, s.fn)
		if int(layout.PushConstants) != npc || layout.NumBindings() != nres {
			return ABIError{Export: ep.Name, Arg: -1, Type: Type{}}
		}
	}

	/* resources fill the declared slots in set/binding order; the shape
	 * check above guarantees an exact fit */
	slots := make([]BindingRef, 0, layout.NumBindings())
	for _, set := range layout.Sets {
		for _, bd := range set.Bindings {
			slots = append(slots, BindingRef{Set: set.Ordinal, Binding: bd.Ordinal})
		}
	}

	for _, s := range sites {
		aux := s.op.Aux.(*DispatchAux)
		refs := make([]BindingRef, 0, len(s.op.Args)+len(s.op.Results))
		npc, nb := uint32(0), 0
		for _, a := range s.op.Args {
			if isPushConstant(s.fn.ValueOf(a).Type) {
				refs = append(refs, BindingRef{PushConstant: true, Ordinal: npc})
				npc++
			} else {
				refs = append(refs, slots[nb])
				nb++
			}
		}
		for r := range s.op.Results {
			if t := s.op.Tie(r); t != NoTie {
				refs = append(refs, refs[t])
				continue
			}
			refs = append(refs, slots[nb])
			nb++
		}
		aux.Bindings = refs
	}
	ep.Layout = layout
	return nil
}

// siteShape counts the push constants and distinct resources of one call
// site, deduplicating tied results against their operands.
func siteShape(p *Op, f *Func) (int, int) {
	npc, nres := 0, 0
	for _, a := range p.Args {
		if isPushConstant(f.ValueOf(a).Type) {
			npc++
		} else {
			nres++
		}
	}
	for r := range p.Results {
		if p.Tie(r) == NoTie {
			nres++
		}
	}
	return npc, nres
}
