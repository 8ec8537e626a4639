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
	"github.com/scottamain/iree-sub001/internal/abi"
)

// Flatten collapses every kernel-visible multi-dimensional buffer into a
// rank-1 view and rewrites element accesses to a single linear index.
// Buffers are bags of bytes with compiler-managed concatenation: only a
// fully static uniform-class buffer keeps a static extent, everything
// else becomes one dynamic extent. Index computation prefers the static
// stride form and falls back to a multiply-accumulate over per-dimension
// sizes obtained from the shape oracle.
type Flatten struct{}

func (self Flatten) Apply(ctx *Context) error {
	for _, ex := range ctx.Module.Execs {
		if ex.External {
			continue
		}
		for _, ep := range ex.Exports {
			if ep.Func == nil {
				continue
			}
			if err := self.applyFunc(ep.Func, ep.Layout); err != nil {
				return err
			}
		}
	}
	return nil
}

func (self Flatten) applyFunc(f *Func, layout *abi.PipelineLayout) error {
	/* snapshot, rewriting inserts index arithmetic */
	var subspans []*Op
	f.Walk(func(p *Op) {
		if p.Kind == OpBindingSubspan {
			subspans = append(subspans, p)
		}
	})

	for _, p := range subspans {
		if err := self.flattenBuffer(f, p, layout); err != nil {
			return err
		}
	}
	return nil
}

func (self Flatten) flattenBuffer(f *Func, p *Op, layout *abi.PipelineLayout) error {
	buf := p.Results[0]
	t := f.ValueOf(buf).Type
	if t.Kind != KBuffer || t.Rank() <= 1 {
		return nil
	}

	/* only kernel-visible element accesses flatten; a buffer still read
	 * by tensor-level ops keeps its logical shape for their lowering */
	for _, u := range f.UsesOf(buf) {
		if c := f.OpOf(u.Op); c.Kind != OpLoad && c.Kind != OpStore {
			return nil
		}
	}

	/* rewrite the consumers while the logical shape is still known */
	for _, u := range f.UsesOf(buf) {
		c := f.OpOf(u.Op)
		switch c.Kind {
		case OpLoad:
			if err := self.linearize(f, c, buf, t, 1); err != nil {
				return err
			}
		case OpStore:
			if err := self.linearize(f, c, buf, t, 2); err != nil {
				return err
			}
		}
	}

	/* collapse the type */
	f.ValueOf(buf).Type = self.flatType(p, t, layout)
	return nil
}

// flatType picks the rank-1 carrier: static extent only for a fully
// static uniform-class buffer.
func (self Flatten) flatType(p *Op, t Type, layout *abi.PipelineLayout) Type {
	aux := p.Aux.(*BindingSubspanAux)
	if n, ok := t.StaticElemCount(); ok && layout != nil {
		if b, found := layout.Find(aux.Set, aux.Binding); found && b.Type == abi.UniformBuffer {
			return Buffer(t.Elem, n)
		}
	}
	return Buffer(t.Elem, DynDim)
}

// linearize folds the multi-dimensional indices of one access into a
// single linear index inserted immediately before it. first is the
// position of the leading index operand.
func (self Flatten) linearize(f *Func, c *Op, buf ValueId, t Type, first int) error {
	indices := c.Args[first:]
	if len(indices) != t.Rank() {
		return StructuralError{Pass: "flatten", Func: f.Name, Reason: "access rank does not match buffer rank"}
	}

	cur := _Cursor{fn: f, at: Before(f, c)}
	var linear ValueId

	if _, ok := t.StaticElemCount(); ok {
		/* static strides: offset + sum(i_k * stride_k) */
		stride := int64(1)
		strides := make([]int64, t.Rank())
		for k := t.Rank() - 1; k >= 0; k-- {
			strides[k] = stride
			stride *= t.Dims[k]
		}
		for k, idx := range indices {
			term := idx
			if strides[k] != 1 {
				term = cur.mul(idx, cur.constI64(strides[k]))
			}
			if k == 0 {
				linear = term
			} else {
				linear = cur.add(linear, term)
			}
		}
	} else {
		/* dynamic fallback: ((i0*d1)+i1)*d2+i2... with per-dimension
		 * sizes recovered from the oracle, or materialized dim queries
		 * when it has no answer */
		dyn, ok := f.FindDynamicDims(buf, cur.at)
		if !ok {
			dyn = f.MaterializeDynamicDims(buf, cur.at)
			cur.at = Before(f, c)
		}
		sizes := make([]ValueId, t.Rank())
		di := 0
		for k, d := range t.Dims {
			if d == DynDim {
				sizes[k] = dyn[di]
				di++
			} else {
				sizes[k] = cur.constI64(d)
			}
		}
		linear = indices[0]
		for k := 1; k < t.Rank(); k++ {
			linear = cur.add(cur.mul(linear, sizes[k]), indices[k])
		}
	}

	/* replace the index list with the linear index */
	c.Args = append(c.Args[:first], linear)
	return nil
}

// _Cursor inserts scalar index arithmetic at a fixed point, advancing
// past everything it emits.
type _Cursor struct {
	fn *Func
	at Pos
}

func (self *_Cursor) emit(kind OpKind, args []ValueId, t Type, aux Aux) ValueId {
	p := self.fn.InsertAt(self.fn.BlockOf(self.at.Block), self.at.Index, kind, args, []Type{t}, aux)
	self.at.Index++
	return p.Results[0]
}

func (self *_Cursor) constI64(v int64) ValueId {
	return self.emit(OpConst, nil, Scalar(I64), &ConstAux{Bits: uint64(v)})
}

func (self *_Cursor) add(a ValueId, b ValueId) ValueId {
	return self.emit(OpAdd, []ValueId{a, b}, Scalar(I64), nil)
}

func (self *_Cursor) mul(a ValueId, b ValueId) ValueId {
	return self.emit(OpMul, []ValueId{a, b}, Scalar(I64), nil)
}
