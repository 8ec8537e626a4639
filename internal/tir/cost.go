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

// Cost is the static workload estimate of one operation. Unbounded marks
// dynamic-shaped work, which always outranks any static cost so that
// dynamic work is never deprioritized in workload summaries.
type Cost struct {
	Static    int64
	Unbounded bool
}

// Less reports whether self ranks strictly below other.
func (self Cost) Less(other Cost) bool {
	if self.Unbounded != other.Unbounded {
		return other.Unbounded
	}
	return self.Static < other.Static
}

// CostFn estimates the workload of one operation.
type CostFn func(f *Func, p *Op) Cost

func rangeProduct(sizes []int64) Cost {
	n := int64(1)
	for _, s := range sizes {
		if s == DynDim {
			return Cost{Unbounded: true}
		}
		n *= s
	}
	return Cost{Static: n}
}

// costTab is the closed registry of per-kind cost handlers. Kinds without
// an entry cost nothing. New kinds get an explicit row, never a dynamic
// fallback.
var costTab = [opKindMax]CostFn{
	OpGeneric: func(f *Func, p *Op) Cost {
		return rangeProduct(p.Aux.(*GenericAux).Loops)
	},
	OpSlice: func(f *Func, p *Op) Cost {
		return rangeProduct(p.Aux.(*SliceAux).Sizes)
	},
	OpUpdate: func(f *Func, p *Op) Cost {
		return rangeProduct(f.ValueOf(p.Args[0]).Type.Dims)
	},
}

// EstimateCost returns the workload estimate of one op.
func EstimateCost(f *Func, p *Op) Cost {
	if fn := costTab[p.Kind]; fn != nil {
		return fn(f, p)
	}
	return Cost{}
}

// summaryName derives a diagnostic name from one op.
func summaryName(p *Op) string {
	if aux, ok := p.Aux.(*GenericAux); ok && aux.Name != "" {
		return aux.Name
	}
	switch p.Kind {
	case OpSlice:
		return "slice"
	case OpUpdate:
		return "update"
	default:
		return p.Kind.String()
	}
}

// SummarizeWorkload picks the highest-cost op of a region body and
// returns its diagnostic name and loop shape. Comparison is strict
// greater-than, so ties keep the earliest candidate. Advisory only.
func SummarizeWorkload(f *Func, bb *Block, cost CostFn) (string, []int64) {
	var best *Op
	var bestCost Cost

	if cost == nil {
		cost = EstimateCost
	}

	/* scan the whole body, nested regions included */
	f.walkBlock(bb, func(p *Op) {
		if p.Kind.IsTerminator() {
			return
		}
		if c := cost(f, p); best == nil || bestCost.Less(c) {
			best, bestCost = p, c
		}
	})
	if best == nil {
		return "", nil
	}

	/* derive the grid shape from the winner */
	switch aux := best.Aux.(type) {
	case *GenericAux:
		return summaryName(best), append([]int64(nil), aux.Loops...)
	case *SliceAux:
		return summaryName(best), append([]int64(nil), aux.Sizes...)
	default:
		if len(best.Results) == 0 {
			return summaryName(best), nil
		}
		return summaryName(best), append([]int64(nil), f.ValueOf(best.Results[0]).Type.Dims...)
	}
}
