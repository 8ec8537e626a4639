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

func entryKinds(f *Func) []OpKind {
	var ks []OpKind
	for _, id := range f.Entry().Ops {
		ks = append(ks, f.OpOf(id).Kind)
	}
	return ks
}

func walkKinds(f *Func) []OpKind {
	var ks []OpKind
	f.Walk(func(p *Op) { ks = append(ks, p.Kind) })
	return ks
}

func TestFuncArena(t *testing.T) {
	f := NewFunc("f")
	b := NewBuilder(f)
	c := b.ConstI64(4)
	d := b.ConstI64(2)
	s := b.Add(c, d)
	b.Return(s)

	require.Equal(t, []OpKind{OpConst, OpConst, OpAdd, OpReturn}, entryKinds(f))

	cc := f.OpOf(f.ValueOf(c).Def)
	require.Equal(t, OpConst, cc.Kind)
	require.Equal(t, 0, f.IndexOf(cc))

	add := f.OpOf(f.ValueOf(s).Def)
	require.Equal(t, OpAdd, add.Kind)
	require.Equal(t, 2, f.IndexOf(add))
	require.Equal(t, Pos{Block: 0, Index: 2}, f.PosOf(add))
}

func TestUsesAndReplace(t *testing.T) {
	f := NewFunc("f")
	b := NewBuilder(f)
	c := b.ConstI64(4)
	d := b.ConstI64(2)
	s := b.Add(c, d)
	b.Return(s)

	uses := f.UsesOf(c)
	require.Len(t, uses, 1)
	require.Equal(t, 0, uses[0].Index)

	/* an op counts once even when it reads the value in both slots */
	f.ReplaceAllUses(c, d)
	require.Equal(t, 0, f.NumUses(c))
	require.Equal(t, 1, f.NumUses(d))

	add := f.OpOf(uses[0].Op)
	require.Equal(t, []ValueId{d, d}, add.Args)
}

func TestDetachMoveErase(t *testing.T) {
	f := NewFunc("f")
	b := NewBuilder(f)
	c := b.ConstI64(4)
	d := b.ConstI64(2)
	s := b.Add(c, d)
	ret := b.Return(s)

	dd := f.OpOf(f.ValueOf(d).Def)
	cc := f.OpOf(f.ValueOf(c).Def)
	f.MoveBefore(dd, cc)
	require.Equal(t, 0, f.IndexOf(dd))
	require.Equal(t, 1, f.IndexOf(cc))

	f.Erase(ret)
	require.Equal(t, OpInvalid, ret.Kind)
	require.Len(t, f.Entry().Ops, 3)

	/* erased ops disappear from use scans */
	require.Equal(t, 0, f.NumUses(s))
}

func TestWalkDescendsRegions(t *testing.T) {
	f := NewFunc("f")
	p := f.NewParam("p", Tensor(F32, 4))
	b := NewBuilder(f)

	region := f.Append(f.Entry(), OpRegion, []ValueId{p}, []Type{Tensor(F32, 4)}, nil)
	body := f.NewBlock(region.Id)
	b.SetBlock(body)
	g := b.Generic("inc", []int64{4}, []ValueId{p}, Tensor(F32, 4))
	b.Yield(g)
	b.SetBlock(f.Entry())
	b.Return(region.Results[0])

	require.Equal(t, []OpKind{OpRegion, OpGeneric, OpYield, OpReturn}, walkKinds(f))
	require.Equal(t, body.Id, f.RegionBody(region).Id)

	term := f.Terminator(body)
	require.NotNil(t, term)
	require.Equal(t, OpYield, term.Kind)
}

func TestPrinterNamesEverything(t *testing.T) {
	f := NewFunc("main")
	src := f.NewParam("src", Tensor(F32, 8))
	b := NewBuilder(f)
	g := b.Generic("mul2", []int64{8}, []ValueId{src}, Tensor(F32, 8))
	b.Return(g)

	s := f.String()
	require.Contains(t, s, "func @main")
	require.Contains(t, s, "generic")
	require.Contains(t, s, "mul2")
}
