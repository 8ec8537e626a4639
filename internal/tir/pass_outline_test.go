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

func dispatchesOf(f *Func) []*Op {
	var ds []*Op
	f.Walk(func(p *Op) {
		if p.Kind == OpDispatch {
			ds = append(ds, p)
		}
	})
	return ds
}

func TestOutlineRoundTrip(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	src := f.NewParam("src", Tensor(F32, 16))
	b := NewBuilder(f)
	g1 := b.Generic("scale", []int64{16}, []ValueId{src}, Tensor(F32, 16))
	g2 := b.Generic("offset", []int64{16}, []ValueId{g1}, Tensor(F32, 16))
	b.Return(g2)

	ctx := NewContext(m, opts.GetDefaultOptions())
	require.NoError(t, FormRegions{}.Apply(ctx))
	require.NoError(t, Outline{}.Apply(ctx))

	/* one executable, named after the function and the dominant op */
	require.Len(t, m.Execs, 1)
	ex := m.Execs[0]
	require.Equal(t, "main_dispatch_0", ex.Name)
	require.Len(t, ex.Exports, 1)
	ep := ex.Exports[0]
	require.Equal(t, "main_dispatch_0_scale", ep.Name)

	/* the export body is a closed clone of the region */
	require.Len(t, ep.Func.Params, 1)
	require.Equal(t, []OpKind{OpGeneric, OpGeneric, OpReturn}, entryKinds(ep.Func))
	require.Len(t, ep.Func.Terminator(ep.Func.Entry()).Args, 1)
	require.NoError(t, ep.Func.Verify())

	/* the call site replaces the region: args are the captures, result
	 * count matches the yield count, readers are rewired */
	ds := dispatchesOf(f)
	require.Len(t, ds, 1)
	call := ds[0]
	require.Equal(t, []ValueId{src}, call.Args)
	require.Len(t, call.Results, 1)
	require.Equal(t, []OpKind{OpDispatch, OpReturn}, entryKinds(f))
	require.Equal(t, []ValueId{call.Results[0]}, f.Terminator(f.Entry()).Args)

	aux := call.Aux.(*DispatchAux)
	require.Equal(t, "main_dispatch_0", aux.Executable)
	require.Equal(t, "main_dispatch_0_scale", aux.Export)
	require.Equal(t, []int64{16}, aux.Workload)
	require.NoError(t, m.Verify())
}

func TestOutlineNamesAreOrdinal(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	src := f.NewParam("src", Tensor(F32, 8))
	dst := f.NewParam("dst", Tensor(F32, 8))
	b := NewBuilder(f)
	s1 := b.Slice(src, []int64{0}, []int64{4})
	u1 := b.Update(s1, dst, []int64{0})
	s2 := b.Slice(src, []int64{4}, []int64{4})
	u2 := b.Update(s2, u1, []int64{4})
	b.Return(u2)

	ctx := NewContext(m, opts.GetDefaultOptions())
	require.NoError(t, FormRegions{}.Apply(ctx))
	require.NoError(t, Outline{}.Apply(ctx))

	require.Len(t, m.Execs, 2)
	require.Equal(t, "main_dispatch_0", m.Execs[0].Name)
	require.Equal(t, "main_dispatch_1", m.Execs[1].Name)
	require.Equal(t, "main_dispatch_0_slice", m.Execs[0].Exports[0].Name)
	require.Equal(t, "main_dispatch_1_slice", m.Execs[1].Exports[0].Name)
	require.NoError(t, m.Verify())
}

func TestOutlineRejectsEmptyRegion(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	b := NewBuilder(f)

	region := f.Append(f.Entry(), OpRegion, nil, nil, nil)
	body := f.NewBlock(region.Id)
	b.SetBlock(body)
	b.Yield()
	b.SetBlock(f.Entry())
	b.Return()

	ctx := NewContext(m, opts.GetDefaultOptions())
	err := Outline{}.Apply(ctx)
	require.Error(t, err)

	var serr StructuralError
	require.ErrorAs(t, err, &serr)
	require.Contains(t, serr.Reason, "empty region")
}

func TestOutlineRejectsNestedRegion(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	src := f.NewParam("src", Tensor(F32, 4))
	b := NewBuilder(f)

	outer := f.Append(f.Entry(), OpRegion, nil, []Type{Tensor(F32, 4)}, nil)
	obody := f.NewBlock(outer.Id)

	inner := f.InsertAt(obody, 0, OpRegion, nil, []Type{Tensor(F32, 4)}, nil)
	ibody := f.NewBlock(inner.Id)
	b.SetBlock(ibody)
	g := b.Generic("inc", []int64{4}, []ValueId{src}, Tensor(F32, 4))
	b.Yield(g)

	b.SetBlock(obody)
	b.Yield(inner.Results[0])
	b.SetBlock(f.Entry())
	b.Return(outer.Results[0])

	ctx := NewContext(m, opts.GetDefaultOptions())
	err := Outline{}.Apply(ctx)
	require.Error(t, err)

	var serr StructuralError
	require.ErrorAs(t, err, &serr)
	require.Contains(t, serr.Reason, "nested")
}
