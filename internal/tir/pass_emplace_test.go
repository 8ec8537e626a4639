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

	"github.com/scottamain/iree-sub001/internal/opts"
)

func countKind(f *Func, k OpKind) int {
	n := 0
	f.Walk(func(p *Op) {
		if p.Kind == k {
			n++
		}
	})
	return n
}

func TestEmplaceCollapsesUpdateChain(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	dst := f.NewParam("dst", Tensor(F32, 32))
	b := NewBuilder(f)
	d1 := b.Dispatch("e0", "e0_x", nil, []Type{Tensor(F32, 16)}, nil)
	u1 := b.Update(d1.Results[0], dst, []int64{0})
	d2 := b.Dispatch("e1", "e1_x", nil, []Type{Tensor(F32, 16)}, nil)
	u2 := b.Update(d2.Results[0], u1, []int64{16})
	b.Return(u2)

	ctx := NewContext(m, opts.GetDefaultOptions())
	require.NoError(t, Emplace{}.Apply(ctx))

	/* both dispatches now write straight into the destination, each at
	 * its own offset; the copies are gone */
	require.Equal(t, 0, countKind(f, OpUpdate))
	require.Equal(t, []ValueId{dst}, d1.Args)
	require.Equal(t, 0, d1.Tie(0))
	require.Equal(t, []ValueId{d1.Results[0]}, d2.Args)
	require.Equal(t, 0, d2.Tie(0))

	/* the result sizes now report the whole target allocation */
	require.Equal(t, Tensor(F32, 32), f.ValueOf(d1.Results[0]).Type)
	require.Equal(t, Tensor(F32, 32), f.ValueOf(d2.Results[0]).Type)

	require.Equal(t, [][]int64{{0}}, d1.Aux.(*DispatchAux).ResultOffsets)
	require.Equal(t, [][]int64{{16}}, d2.Aux.(*DispatchAux).ResultOffsets)

	/* the chain bottoms out at the caller's buffer */
	require.Equal(t, dst, f.FindTiedBaseValue(d2.Results[0]))
	require.Equal(t, []ValueId{d2.Results[0]}, f.Terminator(f.Entry()).Args)
	require.NoError(t, f.Verify())
}

func TestEmplaceIsIdempotent(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	dst := f.NewParam("dst", Tensor(F32, 32))
	b := NewBuilder(f)
	d1 := b.Dispatch("e0", "e0_x", nil, []Type{Tensor(F32, 16)}, nil)
	u1 := b.Update(d1.Results[0], dst, []int64{0})
	b.Return(u1)

	ctx := NewContext(m, opts.GetDefaultOptions())
	require.NoError(t, Emplace{}.Apply(ctx))
	first := f.String()

	require.NoError(t, Emplace{}.Apply(ctx))
	require.Equal(t, first, f.String())
}

func TestEmplaceRefusesMultiUse(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	dst := f.NewParam("dst", Tensor(F32, 32))
	b := NewBuilder(f)
	d1 := b.Dispatch("e0", "e0_x", nil, []Type{Tensor(F32, 16)}, nil)
	u1 := b.Update(d1.Results[0], dst, []int64{0})
	b.Return(u1, d1.Results[0])

	ctx := NewContext(m, opts.GetDefaultOptions())
	require.NoError(t, Emplace{}.Apply(ctx))

	/* two readers, ownership ambiguous, nothing happens */
	require.Equal(t, 1, countKind(f, OpUpdate))
	require.Equal(t, NoTie, d1.Tie(0))
	require.Empty(t, d1.Args)
}

func TestEmplaceRefusesTiedResult(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	src := f.NewParam("src", Tensor(F32, 16))
	dst := f.NewParam("dst", Tensor(F32, 32))
	b := NewBuilder(f)
	d1 := b.Dispatch("e0", "e0_x", []ValueId{src}, []Type{Tensor(F32, 16)}, nil)
	d1.SetTie(0, 0)
	u1 := b.Update(d1.Results[0], dst, []int64{0})
	b.Return(u1)

	ctx := NewContext(m, opts.GetDefaultOptions())
	require.NoError(t, Emplace{}.Apply(ctx))

	/* an in-place result may overlap the target, left untouched */
	require.Equal(t, 1, countKind(f, OpUpdate))
	require.Equal(t, []ValueId{src}, d1.Args)
}

func TestEmplaceHoistsTarget(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	b := NewBuilder(f)
	d1 := b.Dispatch("e0", "e0_x", nil, []Type{Tensor(F32, 16)}, nil)
	e := b.Empty(Tensor(F32, 32))
	u1 := b.Update(d1.Results[0], e, []int64{0})
	b.Return(u1)

	ctx := NewContext(m, opts.GetDefaultOptions())
	require.NoError(t, Emplace{}.Apply(ctx))

	/* the allocation moved above the dispatch so the tie is legal */
	require.Equal(t, []OpKind{OpEmpty, OpDispatch, OpReturn}, entryKinds(f))
	require.Equal(t, []ValueId{e}, d1.Args)
	require.Equal(t, 0, d1.Tie(0))
	require.NoError(t, f.Verify())
}

func TestEmplaceDisabled(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	dst := f.NewParam("dst", Tensor(F32, 32))
	b := NewBuilder(f)
	d1 := b.Dispatch("e0", "e0_x", nil, []Type{Tensor(F32, 16)}, nil)
	u1 := b.Update(d1.Results[0], dst, []int64{0})
	b.Return(u1)

	o := opts.GetDefaultOptions()
	o.NoEmplace = true
	ctx := NewContext(m, o)
	require.NoError(t, Emplace{}.Apply(ctx))

	require.Equal(t, 1, countKind(f, OpUpdate))
	require.Equal(t, NoTie, d1.Tie(0))
}
