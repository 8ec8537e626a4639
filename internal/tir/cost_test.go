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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCostOrdering(t *testing.T) {
	require.True(t, Cost{Static: 1}.Less(Cost{Static: 2}))
	require.False(t, Cost{Static: 2}.Less(Cost{Static: 2}))

	/* unbounded outranks any static cost */
	require.True(t, Cost{Static: 1 << 40}.Less(Cost{Unbounded: true}))
	require.False(t, Cost{Unbounded: true}.Less(Cost{Static: 1 << 40}))
	require.False(t, Cost{Unbounded: true}.Less(Cost{Unbounded: true}))
}

func TestEstimateCost(t *testing.T) {
	f := NewFunc("f")
	src := f.NewParam("src", Tensor(F32, 16, 16))
	b := NewBuilder(f)
	g := b.Generic("matmul", []int64{16, 16}, []ValueId{src}, Tensor(F32, 16, 16))
	s := b.Slice(src, []int64{0, 0}, []int64{4, 8})
	b.Return(g, s)

	gc := EstimateCost(f, f.OpOf(f.ValueOf(g).Def))
	require.Equal(t, Cost{Static: 256}, gc)

	sc := EstimateCost(f, f.OpOf(f.ValueOf(s).Def))
	require.Equal(t, Cost{Static: 32}, sc)
}

func TestEstimateCostDynamic(t *testing.T) {
	f := NewFunc("f")
	src := f.NewParam("src", Tensor(F32, DynDim, 8))
	b := NewBuilder(f)
	d := b.Dim(src, 0)
	g := b.Generic("scan", []int64{DynDim, 8}, []ValueId{src}, Tensor(F32, DynDim, 8), d)
	b.Return(g)

	require.True(t, EstimateCost(f, f.OpOf(f.ValueOf(g).Def)).Unbounded)
}

func TestSummarizeWorkload(t *testing.T) {
	f := NewFunc("f")
	src := f.NewParam("src", Tensor(F32, 8, 8))
	b := NewBuilder(f)
	b.Generic("small", []int64{4, 4}, []ValueId{src}, Tensor(F32, 4, 4))
	b.Generic("big", []int64{8, 8}, []ValueId{src}, Tensor(F32, 8, 8))
	b.Return()

	name, workload := SummarizeWorkload(f, f.Entry(), nil)
	require.Equal(t, "big", name)
	require.Equal(t, []int64{8, 8}, workload)
}

func TestSummarizeWorkloadTieKeepsFirst(t *testing.T) {
	f := NewFunc("f")
	src := f.NewParam("src", Tensor(F32, 4, 4))
	b := NewBuilder(f)
	b.Generic("first", []int64{4, 4}, []ValueId{src}, Tensor(F32, 4, 4))
	b.Generic("second", []int64{4, 4}, []ValueId{src}, Tensor(F32, 4, 4))
	b.Return()

	name, _ := SummarizeWorkload(f, f.Entry(), nil)
	require.Equal(t, "first", name)
}

func TestSummarizeWorkloadDynamicWins(t *testing.T) {
	f := NewFunc("f")
	src := f.NewParam("src", Tensor(F32, DynDim, 8))
	b := NewBuilder(f)
	d := b.Dim(src, 0)
	b.Generic("huge", []int64{1 << 20}, []ValueId{src}, Tensor(F32, 1<<20))
	b.Generic("dyn", []int64{DynDim, 8}, []ValueId{src}, Tensor(F32, DynDim, 8), d)
	b.Return()

	name, workload := SummarizeWorkload(f, f.Entry(), nil)
	require.Equal(t, "dyn", name)
	require.Equal(t, []int64{DynDim, 8}, workload)
}

func TestSummarizeWorkloadCustomCost(t *testing.T) {
	f := NewFunc("f")
	src := f.NewParam("src", Tensor(F32, 4))
	b := NewBuilder(f)
	b.Generic("a", []int64{16}, []ValueId{src}, Tensor(F32, 16))
	b.Generic("b", []int64{4}, []ValueId{src}, Tensor(F32, 4))
	b.Return()

	fn := func(f *Func, p *Op) Cost {
		if aux, ok := p.Aux.(*GenericAux); ok && aux.Name == "b" {
			return Cost{Static: 1 << 30}
		}
		return EstimateCost(f, p)
	}
	name, _ := SummarizeWorkload(f, f.Entry(), fn)
	require.Equal(t, "b", name)
}
