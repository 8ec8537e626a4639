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
)

// Emplace rewrites dispatches whose results are copied into a larger
// resource so they write into that resource directly. Walking call sites
// in program order makes chains of updates into one growing buffer
// collapse transitively: each dispatch ends up writing into the same
// backing allocation at its own offset, and the final allocation becomes
// the chain's output. Newly created ties are already in legal state, so a
// second run reaches its fixed point immediately with no changes.
type Emplace struct{}

func (self Emplace) Apply(ctx *Context) error {
	if ctx.Opts.NoEmplace {
		return nil
	}
	for _, f := range ctx.Module.Funcs {
		changed := false
		for _, id := range append([]OpId(nil), f.Entry().Ops...) {
			p := f.OpOf(id)
			if p.Kind != OpDispatch {
				continue
			}
			for i := range p.Results {
				if self.tryEmplaceResult(f, p, i) {
					changed = true
				}
			}
		}
		if changed && ctx.Opts.DebugDumps {
			spew.Config.SortKeys = true
			spew.Dump(f.Name, f.String())
		}
	}
	return nil
}

// tryEmplaceResult attempts to redirect result i of the dispatch into the
// target of its sole consuming update op. Any refusal is a local match
// failure, silently skipped.
func (self Emplace) tryEmplaceResult(f *Func, p *Op, i int) bool {
	/* in-place results already alias an input, the target may overlap it
	 * and this pass does not prove non-overlap */
	if p.Tie(i) != NoTie {
		return false
	}

	/* multiple readers means ambiguous ownership */
	r := p.Results[i]
	uses := f.UsesOf(r)
	if len(uses) != 1 || uses[0].Index < 0 {
		return false
	}

	/* the sole use must be the source slot of an update into a larger
	 * resource, and the slot must not itself carry a tie */
	c := f.OpOf(uses[0].Op)
	if c.Kind != OpUpdate || uses[0].Index != 0 || c.Block != p.Block {
		return false
	}
	if c.TiedSlot(uses[0].Index) {
		return false
	}

	/* the target must be available before the dispatch */
	target := c.Args[1]
	if !self.hoistTarget(f, p, target) {
		return false
	}

	/* append the target operand and tie the result to it */
	at := Before(f, p)
	argIdx := len(p.Args)
	p.Args = append(p.Args, target)
	p.OperandDims = append(p.OperandDims, nil)
	if dims, ok := f.FindDynamicDims(target, at); ok {
		p.OperandDims[argIdx] = append([]ValueId(nil), dims...)
	}
	p.SetTie(i, argIdx)

	/* the dispatch now reports the target's size as its own result
	 * size, not the original small size */
	tt := f.ValueOf(target).Type
	f.ValueOf(r).Type = tt
	dims := f.MaterializeDynamicDims(target, Before(f, p))
	p.ResultDims[i] = dims

	aux := p.Aux.(*DispatchAux)
	for len(aux.ResultOffsets) < len(p.Results) {
		aux.ResultOffsets = append(aux.ResultOffsets, nil)
	}
	aux.ResultOffsets[i] = cloneInts(c.Aux.(*UpdateAux).Offsets)

	/* the separate update disappears, the chain continues off the
	 * dispatch result */
	f.ReplaceAllUses(c.Results[0], r)
	f.Erase(c)
	return true
}

// hoistTarget ensures the update's target is defined before the dispatch,
// moving its side-effect-free producer up when legal.
func (self Emplace) hoistTarget(f *Func, p *Op, target ValueId) bool {
	at := Before(f, p)
	if f.IsValueUsable(target, at) {
		return true
	}
	def := f.ValueOf(target).Def
	if def == NoOp {
		return false
	}
	q := f.OpOf(def)
	if q.Kind.HasSideEffects() || q.Block != p.Block {
		return false
	}

	/* producer-move legality: every input of the producer must already
	 * dominate the dispatch */
	ok := true
	f.forEachOperand(q, func(slot *ValueId) {
		if ok && !f.IsValueUsable(*slot, at) {
			ok = false
		}
	})
	if !ok {
		return false
	}
	f.MoveBefore(q, p)
	return true
}
