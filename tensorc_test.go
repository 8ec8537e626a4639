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

package tensorc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottamain/iree-sub001/internal/abi"
	"github.com/scottamain/iree-sub001/internal/target"
	"github.com/scottamain/iree-sub001/internal/tir"
)

func buildSliceModule(name string) *tir.Module {
	m := tir.NewModule(name)
	f := m.AddFunc(tir.NewFunc("main"))
	src := f.NewParam("src", tir.Tensor(tir.F32, 128, 1536))
	dst := f.NewParam("dst", tir.Tensor(tir.F32, 256, 1024))
	b := tir.NewBuilder(f)
	s := b.Slice(src, []int64{0, 0}, []int64{128, 1024})
	u := b.Update(s, dst, []int64{0, 0})
	b.Return(u)
	return m
}

func buildChainModule(name string) *tir.Module {
	m := tir.NewModule(name)
	f := m.AddFunc(tir.NewFunc("main"))
	src := f.NewParam("src", tir.Tensor(tir.F32, 16))
	b := tir.NewBuilder(f)
	g1 := b.Generic("scale", []int64{16}, []tir.ValueId{src}, tir.Tensor(tir.F32, 16))
	g2 := b.Generic("offset", []int64{16}, []tir.ValueId{g1}, tir.Tensor(tir.F32, 16))
	b.Return(g2)
	return m
}

func countKind(f *tir.Func, k tir.OpKind) int {
	n := 0
	f.Walk(func(p *tir.Op) {
		if p.Kind == k {
			n++
		}
	})
	return n
}

func TestCompileProducesArtifact(t *testing.T) {
	m := buildSliceModule("m")
	art, err := Compile(m)
	require.NoError(t, err)
	require.Same(t, m, art.Module)
	require.NotEmpty(t, art.Targets)

	/* the artifact carries one decodable layout per export */
	enc, ok := art.LayoutFor("main_dispatch_0", "main_dispatch_0_slice")
	require.True(t, ok)
	layout, err := abi.Decode(enc)
	require.NoError(t, err)
	require.Equal(t, 2, layout.NumBindings())

	_, ok = art.LayoutFor("main_dispatch_0", "nope")
	require.False(t, ok)
}

func TestCompileAllIsIndependent(t *testing.T) {
	ms := []*tir.Module{buildSliceModule("m0"), buildSliceModule("m1"), buildChainModule("m2")}
	arts, err := CompileAll(ms, WithWorkers(2))
	require.NoError(t, err)
	require.Len(t, arts, 3)

	/* naming counters are per compilation, never shared */
	for i, art := range arts {
		require.Len(t, art.Module.Execs, 1, "module %d", i)
		require.Equal(t, "main_dispatch_0", art.Module.Execs[0].Name)
	}
}

func TestWithoutEmplacement(t *testing.T) {
	m := buildSliceModule("m")
	_, err := Compile(m, WithoutEmplacement())
	require.NoError(t, err)
	require.Equal(t, 1, countKind(m.Funcs[0], tir.OpUpdate))

	m = buildSliceModule("m")
	_, err = Compile(m)
	require.NoError(t, err)
	require.Equal(t, 0, countKind(m.Funcs[0], tir.OpUpdate))
}

func TestWithMaxRegionOps(t *testing.T) {
	m := buildChainModule("m")
	_, err := Compile(m, WithMaxRegionOps(2))
	require.NoError(t, err)
	require.Len(t, m.Execs, 2)

	m = buildChainModule("m")
	_, err = Compile(m)
	require.NoError(t, err)
	require.Len(t, m.Execs, 1)
}

func TestWithCostModel(t *testing.T) {
	/* default: the tie keeps the earliest op's name */
	m := buildChainModule("m")
	_, err := Compile(m)
	require.NoError(t, err)
	require.Equal(t, "main_dispatch_0_scale", m.Execs[0].Exports[0].Name)

	/* a custom model promotes the later op to dominant */
	fn := func(f *tir.Func, p *tir.Op) tir.Cost {
		if aux, ok := p.Aux.(*tir.GenericAux); ok && aux.Name == "offset" {
			return tir.Cost{Static: 1 << 30}
		}
		return tir.EstimateCost(f, p)
	}
	m = buildChainModule("m")
	_, err = Compile(m, WithCostModel(fn))
	require.NoError(t, err)
	require.Equal(t, "main_dispatch_0_offset", m.Execs[0].Exports[0].Name)
}

func TestWithTargetEnumerator(t *testing.T) {
	m := buildSliceModule("m")
	art, err := Compile(m, WithTargetEnumerator(func() []target.Target {
		return []target.Target{{Name: "sim", Arch: "wasm32"}}
	}))
	require.NoError(t, err)
	require.Len(t, art.Targets, 1)
	require.Equal(t, "sim", art.Targets[0].Name)
}
