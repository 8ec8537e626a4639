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

func TestVerifyAcceptsWellFormed(t *testing.T) {
	f := NewFunc("f")
	src := f.NewParam("src", Tensor(F32, 16))
	dst := f.NewParam("dst", Tensor(F32, 64))
	b := NewBuilder(f)
	s := b.Slice(src, []int64{0}, []int64{8})
	u := b.Update(s, dst, []int64{0})
	b.Return(u)

	require.NoError(t, f.Verify())
}

func TestVerifyUseBeforeDef(t *testing.T) {
	f := NewFunc("f")
	b := NewBuilder(f)
	x := b.ConstI64(1)
	s := b.Add(x, x)
	y := b.ConstI64(2)
	b.Return(s)

	add := f.OpOf(f.ValueOf(s).Def)
	add.Args[1] = y
	err := f.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), "not usable")
}

func TestVerifyRegionEscape(t *testing.T) {
	f := NewFunc("f")
	b := NewBuilder(f)

	region := f.Append(f.Entry(), OpRegion, nil, []Type{Scalar(I64)}, nil)
	body := f.NewBlock(region.Id)
	b.SetBlock(body)
	g1 := b.ConstI64(1)
	g2 := b.ConstI64(2)
	b.Yield(g1)

	b.SetBlock(f.Entry())
	b.Return(g2)

	err := f.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), "escapes")
}

func TestVerifyRegionYieldArity(t *testing.T) {
	f := NewFunc("f")
	b := NewBuilder(f)

	region := f.Append(f.Entry(), OpRegion, nil, []Type{Scalar(I64), Scalar(I64)}, nil)
	body := f.NewBlock(region.Id)
	b.SetBlock(body)
	g := b.ConstI64(1)
	b.Yield(g)

	b.SetBlock(f.Entry())
	b.Return(region.Results[0])

	err := f.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), "yield count")
}

func TestVerifyTieSize(t *testing.T) {
	f := NewFunc("f")
	src := f.NewParam("src", Tensor(F32, 4))
	dst := f.NewParam("dst", Tensor(F32, 16))
	b := NewBuilder(f)
	u := b.Update(src, dst, []int64{0})
	b.Return(u)

	f.ValueOf(u).Type = Tensor(F32, 99)
	err := f.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), "incompatible")
}

func TestVerifySubspanAlignment(t *testing.T) {
	f := NewFunc("k")
	b := NewBuilder(f)
	b.BindingSubspan(0, 0, 2, Buffer(F32, 64))
	b.Return()

	err := f.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), "not divisible")
}

func TestModuleVerifyCoversExports(t *testing.T) {
	m := NewModule("m")
	f := m.AddFunc(NewFunc("main"))
	NewBuilder(f).Return()

	g := NewFunc("k")
	gb := NewBuilder(g)
	gb.BindingSubspan(0, 0, 6, Buffer(F32, 64))
	gb.Return()
	m.Execs = append(m.Execs, &Executable{
		Name:    "k_exec",
		Exports: []*Export{{Name: "k", Func: g}},
	})

	err := m.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), "executable @k_exec")
}
