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

// FindTiedBaseValue walks the tie chain from v to the value that owns the
// backing storage. Ties form a forest (at most one tie per result, no
// cycles), so the walk terminates in at most one step per op on the
// chain.
func (self *Func) FindTiedBaseValue(v ValueId) ValueId {
	for {
		vv := self.values[v]
		if vv.Def == NoOp {
			return v
		}
		def := self.ops[vv.Def]
		t := def.Tie(vv.Out)
		if t == NoTie {
			return v
		}
		v = def.Args[t]
	}
}

// resultDynDims returns the published dynamic dims for one result of a
// shape-aware op, or nil.
func resultDynDims(p *Op, out int) []ValueId {
	if !p.Kind.ShapeAware() || out >= len(p.ResultDims) {
		return nil
	}
	return p.ResultDims[out]
}

// dimsUsable checks that every value of the set may be read at the
// insertion point.
func (self *Func) dimsUsable(dims []ValueId, at Pos) bool {
	for _, d := range dims {
		if !self.IsValueUsable(d, at) {
			return false
		}
	}
	return true
}

// FindDynamicDims recovers the dynamic dimension values describing v,
// usable at the insertion point, or reports false.
//
// The walk goes upward first: along the tie chain to a producer that
// publishes its result dims directly. Failing that it goes downward
// through the uses of v to a consumer that republishes its operand dims
// (a dispatch site), accepting only dims that dominate the insertion
// point so the caller never introduces a use-before-def. It never
// guesses: a miss returns false and the caller materializes explicit dim
// queries instead.
func (self *Func) FindDynamicDims(v ValueId, at Pos) ([]ValueId, bool) {
	/* upward through the tie chain */
	w := v
	for {
		vv := self.values[w]
		if vv.Def == NoOp {
			break
		}
		def := self.ops[vv.Def]
		if dims := resultDynDims(def, vv.Out); dims != nil {
			if len(dims) == vv.Type.NumDynDims() && self.dimsUsable(dims, at) {
				return dims, true
			}
		}
		t := def.Tie(vv.Out)
		if t == NoTie {
			break
		}
		w = def.Args[t]
	}

	/* downward through the uses */
	for _, u := range self.UsesOf(v) {
		if u.Index < 0 {
			continue
		}
		p := self.ops[u.Op]
		if u.Index >= len(p.OperandDims) {
			continue
		}
		dims := p.OperandDims[u.Index]
		if dims == nil || len(dims) != self.values[v].Type.NumDynDims() {
			continue
		}
		if self.dimsUsable(dims, at) {
			return dims, true
		}
	}
	return nil, false
}

// MaterializeDynamicDims returns dims describing v at the insertion
// point, synthesizing a dim query per dynamic axis when the oracle has no
// answer. The queries are inserted exactly at the insertion point; v
// itself must be usable there.
func (self *Func) MaterializeDynamicDims(v ValueId, at Pos) []ValueId {
	if dims, ok := self.FindDynamicDims(v, at); ok {
		return dims
	}
	var dims []ValueId
	bb := self.blocks[at.Block]
	for axis, d := range self.values[v].Type.Dims {
		if d != DynDim {
			continue
		}
		q := self.InsertAt(bb, at.Index, OpDim, []ValueId{v}, []Type{Scalar(I64)}, &DimAux{Axis: axis})
		at.Index++
		dims = append(dims, q.Results[0])
	}
	return dims
}
