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

func cloneInts(v []int64) []int64 {
	return append([]int64(nil), v...)
}

// cloneAux deep-copies a kind-specific payload so rewrites on the clone
// never alias the original.
func cloneAux(a Aux) Aux {
	switch aux := a.(type) {
	case nil:
		return nil
	case *ConstAux:
		c := *aux
		return &c
	case *DimAux:
		c := *aux
		return &c
	case *GenericAux:
		return &GenericAux{Name: aux.Name, Loops: cloneInts(aux.Loops)}
	case *SliceAux:
		return &SliceAux{Offsets: cloneInts(aux.Offsets), Sizes: cloneInts(aux.Sizes)}
	case *UpdateAux:
		return &UpdateAux{Offsets: cloneInts(aux.Offsets)}
	case *ConstantLoadAux:
		c := *aux
		return &c
	case *BindingSubspanAux:
		c := *aux
		return &c
	case *DispatchAux:
		c := &DispatchAux{
			Executable: aux.Executable,
			Export:     aux.Export,
			Workload:   cloneInts(aux.Workload),
			Bindings:   append([]BindingRef(nil), aux.Bindings...),
		}
		for _, offs := range aux.ResultOffsets {
			c.ResultOffsets = append(c.ResultOffsets, cloneInts(offs))
		}
		return c
	default:
		panic("tir: unknown aux kind")
	}
}

func mapValues(vs []ValueId, vmap map[ValueId]ValueId) []ValueId {
	out := make([]ValueId, len(vs))
	for i, v := range vs {
		if m, ok := vmap[v]; ok {
			out[i] = m
		} else {
			out[i] = v
		}
	}
	return out
}

// CloneOpAt duplicates p at the insertion point, remapping operands
// through vmap and creating fresh result values. The clone's results are
// recorded into vmap so dependents cloned afterwards pick them up.
func (self *Func) CloneOpAt(p *Op, at Pos, vmap map[ValueId]ValueId) *Op {
	types := make([]Type, len(p.Results))
	for i, r := range p.Results {
		types[i] = self.values[r].Type
	}
	q := self.InsertAt(self.blocks[at.Block], at.Index, p.Kind, mapValues(p.Args, vmap), types, cloneAux(p.Aux))
	copy(q.Ties, p.Ties)
	for _, dims := range p.ResultDims {
		q.ResultDims = append(q.ResultDims, mapValues(dims, vmap))
	}
	for _, dims := range p.OperandDims {
		q.OperandDims = append(q.OperandDims, mapValues(dims, vmap))
	}
	for i, r := range p.Results {
		vmap[r] = q.Results[i]
	}
	return q
}

// CloneOpInto duplicates one op of src into dst, remapping operands
// through vmap. Result arity and payloads carry over; fresh values are
// created in dst's arena.
func CloneOpInto(dst *Func, bb *Block, src *Func, p *Op, vmap map[ValueId]ValueId) *Op {
	types := make([]Type, len(p.Results))
	for i, r := range p.Results {
		types[i] = src.ValueOf(r).Type
	}
	q := dst.Append(bb, p.Kind, mapValues(p.Args, vmap), types, cloneAux(p.Aux))
	copy(q.Ties, p.Ties)
	for _, dims := range p.ResultDims {
		q.ResultDims = append(q.ResultDims, mapValues(dims, vmap))
	}
	for _, dims := range p.OperandDims {
		q.OperandDims = append(q.OperandDims, mapValues(dims, vmap))
	}
	for i, r := range p.Results {
		vmap[r] = q.Results[i]
	}
	return q
}
