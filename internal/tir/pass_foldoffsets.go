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

// FoldOffsets rewrites every rank-1 binding subspan carrying a nonzero
// byte offset to offset zero, adding the equivalent element offset to
// the index of each access instead. Downstream buffer-aliasing rewrites
// assume zero-offset identity-layout views, so this must run after
// flattening and before any of them. The byte offset is divisible by the
// element width; the verifier enforces that upstream and the division
// here does not re-check it.
type FoldOffsets struct{}

func (self FoldOffsets) Apply(ctx *Context) error {
	for _, ex := range ctx.Module.Execs {
		if ex.External {
			continue
		}
		for _, ep := range ex.Exports {
			if ep.Func != nil {
				self.applyFunc(ep.Func)
			}
		}
	}
	return nil
}

func (self FoldOffsets) applyFunc(f *Func) {
	var subspans []*Op
	f.Walk(func(p *Op) {
		if p.Kind != OpBindingSubspan || p.Aux.(*BindingSubspanAux).ByteOffset == 0 {
			return
		}
		/* only rank-1 views fold into a linear index; a buffer the
		 * flattener left multi-dim keeps its byte offset for whichever
		 * lowering consumes it */
		if len(f.ValueOf(p.Results[0]).Type.Dims) != 1 {
			return
		}
		subspans = append(subspans, p)
	})

	for _, p := range subspans {
		aux := p.Aux.(*BindingSubspanAux)
		buf := p.Results[0]
		off := aux.ByteOffset / f.ValueOf(buf).Type.Elem.Size()

		for _, u := range f.UsesOf(buf) {
			c := f.OpOf(u.Op)
			switch c.Kind {
			case OpLoad:
				self.shiftIndex(f, c, len(c.Args)-1, off)
			case OpStore:
				self.shiftIndex(f, c, len(c.Args)-1, off)
			}
		}

		/* subspan re-emitted at offset zero */
		aux.ByteOffset = 0
	}
}

func (self FoldOffsets) shiftIndex(f *Func, c *Op, slot int, off int64) {
	cur := _Cursor{fn: f, at: Before(f, c)}
	c.Args[slot] = cur.add(c.Args[slot], cur.constI64(off))
}
