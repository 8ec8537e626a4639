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
	"github.com/oleiade/lane"
)

// FormRegions partitions each function body into dispatch regions: one
// region per root computation, grown backward over producers (cloned or
// moved under safety rules) and forward over single-use consumers. A
// candidate that fails a legality check is skipped in place; only shape
// synthesis failures abort the pass.
type FormRegions struct{}

// isRegionRoot reports whether an op anchors a new dispatch region.
func isRegionRoot(p *Op) bool {
	switch p.Kind {
	case OpGeneric, OpSlice:
		return true
	default:
		return false
	}
}

// isCloneable reports whether a producer may be duplicated into a region
// while the original stays in place for other uses.
func isCloneable(p *Op) bool {
	switch p.Kind {
	case OpConst, OpDim, OpEmpty:
		return true
	default:
		return false
	}
}

// isMovable reports whether a single-use producer may be relocated
// entirely into a region.
func isMovable(p *Op) bool {
	if p.Kind.HasSideEffects() {
		return false
	}
	switch p.Kind {
	case OpGeneric, OpSlice, OpEmpty:
		return true
	default:
		return false
	}
}

func (self FormRegions) Apply(ctx *Context) error {
	for _, f := range ctx.Module.Funcs {
		if err := self.applyFunc(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (self FormRegions) applyFunc(ctx *Context, f *Func) error {
	/* snapshot the roots first, formation mutates the block */
	var roots []*Op
	for _, id := range f.Entry().Ops {
		if p := f.OpOf(id); isRegionRoot(p) {
			roots = append(roots, p)
		}
	}

	/* wrap every root still standing in the entry block */
	for _, root := range roots {
		if root.Kind == OpInvalid || root.Block != 0 {
			continue
		}
		if err := self.formRegion(ctx, f, root); err != nil {
			return err
		}
	}
	return nil
}

func (self FormRegions) formRegion(ctx *Context, f *Func, root *Op) error {
	at := Before(f, root)
	bb := f.BlockOf(at.Block)

	/* region op takes over the root's results */
	types := make([]Type, len(root.Results))
	for i, r := range root.Results {
		types[i] = f.ValueOf(r).Type
	}
	region := f.InsertAt(bb, at.Index, OpRegion, nil, types, nil)
	body := f.NewBlock(region.Id)

	/* move the root inside and redirect external readers */
	f.MoveToEnd(root, body)
	for i, r := range root.Results {
		f.ReplaceAllUses(r, region.Results[i])
	}

	/* the yield reads the root's results directly */
	yield := f.Append(body, OpYield, append([]ValueId(nil), root.Results...), nil, nil)
	for i := range region.Results {
		region.ResultDims = append(region.ResultDims, append([]ValueId(nil), resultDynDims(root, i)...))
	}

	/* grow backward over the producer DAG, then forward */
	self.growBackward(ctx, f, region, root)
	self.growForward(ctx, f, region, yield)

	/* finalize the boundary */
	if err := self.fixResultDims(f, region); err != nil {
		return err
	}
	self.computeCaptures(f, region)
	return nil
}

// growBackward runs the tag-propagation worklist: producers of anything
// pulled into the region become candidates themselves, so one pass
// absorbs the whole eligible DAG, not just direct neighbours.
func (self FormRegions) growBackward(ctx *Context, f *Func, region *Op, root *Op) {
	body := f.RegionBody(region)
	q := lane.NewQueue()
	for _, a := range root.Args {
		q.Enqueue(a)
	}

	for !q.Empty() {
		v := q.Dequeue().(ValueId)
		vv := f.ValueOf(v)
		if vv.Def == NoOp {
			continue
		}
		def := f.OpOf(vv.Def)
		if def.Kind == OpInvalid || def.Block == body.Id {
			continue
		}
		if !ctx.Opts.CanGrowRegion(len(body.Ops)) {
			return
		}

		/* all of the producer's own inputs must be readable where the
		 * clone or move lands */
		regionAt := Before(f, region)
		usable := true
		f.forEachOperand(def, func(slot *ValueId) {
			if usable && !f.IsValueUsable(*slot, regionAt) {
				usable = false
			}
		})
		if !usable {
			continue
		}

		switch {
		case isCloneable(def):
			/* duplicate, original stays for outside readers */
			vmap := make(map[ValueId]ValueId)
			clone := f.CloneOpAt(def, Pos{Block: body.Id, Index: 0}, vmap)
			for i, r := range def.Results {
				self.replaceUsesInRegion(f, body, r, clone.Results[i])
			}
			for _, a := range clone.Args {
				q.Enqueue(a)
			}

		case isMovable(def) && self.onlyUsedInside(f, body, def):
			f.Detach(def)
			f.attach(def, body, 0)
			for _, a := range def.Args {
				q.Enqueue(a)
			}
		}
	}
}

// growForward extends the region across consumers that only read its
// single-use results.
func (self FormRegions) growForward(ctx *Context, f *Func, region *Op, yield *Op) {
	body := f.RegionBody(region)
	for ctx.Opts.CanGrowRegion(len(body.Ops)) {
		if !self.pullOneConsumer(f, region, yield) {
			return
		}
	}
}

func (self FormRegions) pullOneConsumer(f *Func, region *Op, yield *Op) bool {
	body := f.RegionBody(region)
	regionAt := Before(f, region)

	for i := 0; i < len(region.Results); i++ {
		r := region.Results[i]
		uses := f.UsesOf(r)
		if len(uses) != 1 {
			continue
		}
		c := f.OpOf(uses[0].Op)
		if c.Kind != OpGeneric || c.Block != region.Block {
			continue
		}

		/* every other operand must already be readable at the region */
		ok := true
		f.forEachOperand(c, func(slot *ValueId) {
			if !ok || *slot == r {
				return
			}
			if !f.IsValueUsable(*slot, regionAt) {
				ok = false
			}
		})
		if !ok {
			continue
		}

		/* move it in ahead of the yield, reading the internal value */
		f.Detach(c)
		f.attach(c, body, len(body.Ops)-1)
		f.ReplaceUsesIn(c, r, yield.Args[i])

		/* its results become new region results */
		for j, cr := range c.Results {
			nv := f.NewValue(f.ValueOf(cr).Type)
			f.ValueOf(nv).Def = region.Id
			f.ValueOf(nv).Out = len(region.Results)
			region.Results = append(region.Results, nv)
			region.Ties = append(region.Ties, NoTie)
			region.ResultDims = append(region.ResultDims, append([]ValueId(nil), resultDynDims(c, j)...))
			yield.Args = append(yield.Args, cr)
			f.ReplaceAllUses(cr, nv)
			f.ReplaceUsesIn(yield, nv, cr)
		}

		/* the absorbed result no longer escapes, drop it from the yield */
		if len(f.UsesOf(r)) == 0 {
			self.dropResult(f, region, yield, i)
		}
		return true
	}
	return false
}

func (self FormRegions) dropResult(f *Func, region *Op, yield *Op, i int) {
	region.Results = append(region.Results[:i], region.Results[i+1:]...)
	region.Ties = append(region.Ties[:i], region.Ties[i+1:]...)
	region.ResultDims = append(region.ResultDims[:i], region.ResultDims[i+1:]...)
	yield.Args = append(yield.Args[:i], yield.Args[i+1:]...)
	for j := i; j < len(region.Results); j++ {
		f.ValueOf(region.Results[j]).Out = j
	}
}

// replaceUsesInRegion rewrites reads of old to new, but only for ops
// living inside the region body.
func (self FormRegions) replaceUsesInRegion(f *Func, body *Block, old ValueId, new ValueId) {
	f.walkBlock(body, func(p *Op) {
		f.ReplaceUsesIn(p, old, new)
	})
}

// onlyUsedInside reports whether every result of the producer is consumed
// exclusively by ops inside the region body.
func (self FormRegions) onlyUsedInside(f *Func, body *Block, p *Op) bool {
	for _, r := range p.Results {
		for _, u := range f.UsesOf(r) {
			if !f.enclosedBy(f.OpOf(u.Op).Block, body.Id) {
				return false
			}
		}
	}
	return true
}

// fixResultDims re-establishes dominance for the region's declared result
// dims. A dim whose producer was absorbed into the region is re-synthesized
// immediately before the region op, exactly where the result type needs
// it; anything else is a hard shape failure.
func (self FormRegions) fixResultDims(f *Func, region *Op) error {
	at := Before(f, region)
	for i, dims := range region.ResultDims {
		for j, d := range dims {
			if f.IsValueUsable(d, at) {
				continue
			}
			def := f.OpOf(f.ValueOf(d).Def)
			if isCloneable(def) && def.Kind != OpEmpty {
				src := true
				f.forEachOperand(def, func(slot *ValueId) {
					if src && !f.IsValueUsable(*slot, at) {
						src = false
					}
				})
				if src {
					vmap := make(map[ValueId]ValueId)
					clone := f.CloneOpAt(def, at, vmap)
					region.ResultDims[i][j] = clone.Results[0]
					at = Before(f, region)
					continue
				}
			}
			return ShapeError{Func: f.Name, Value: f.valueName(d), At: at}
		}
	}
	return nil
}

// computeCaptures rebuilds the region's explicit input list: every value
// read inside the body but defined outside it, in first-use order.
func (self FormRegions) computeCaptures(f *Func, region *Op) {
	body := f.RegionBody(region)
	seen := make(map[ValueId]struct{})
	region.Args = region.Args[:0]

	f.walkBlock(body, func(p *Op) {
		f.forEachOperand(p, func(slot *ValueId) {
			v := *slot
			if _, ok := seen[v]; ok {
				return
			}
			def := f.ValueOf(v).Def
			if def != NoOp && f.enclosedBy(f.OpOf(def).Block, body.Id) {
				return
			}
			seen[v] = struct{}{}
			region.Args = append(region.Args, v)
		})
	})
}
