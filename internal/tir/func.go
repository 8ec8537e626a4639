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
	"fmt"

	"github.com/scottamain/iree-sub001/internal/abi"
)

// Func is a function body backed by value and operation arenas. Values
// and operations are addressed by integer id so rewrites never chase
// dangling pointers, and the arena serializes trivially.
type Func struct {
	Name   string
	Params []ValueId
	blocks []*Block
	ops    []*Op
	values []*Value
}

func NewFunc(name string) *Func {
	f := &Func{Name: name}
	f.blocks = append(f.blocks, &Block{Id: 0, Parent: NoOp})
	return f
}

func (self *Func) Entry() *Block {
	return self.blocks[0]
}

func (self *Func) BlockOf(id BlockId) *Block {
	return self.blocks[id]
}

func (self *Func) ValueOf(id ValueId) *Value {
	return self.values[id]
}

func (self *Func) OpOf(id OpId) *Op {
	return self.ops[id]
}

func (self *Func) NumValues() int {
	return len(self.values)
}

// NewValue appends a fresh value record to the arena.
func (self *Func) NewValue(t Type) ValueId {
	v := &Value{Id: ValueId(len(self.values)), Type: t, Def: NoOp, Out: -1}
	self.values = append(self.values, v)
	return v.Id
}

// NewParam appends a function parameter of the given type.
func (self *Func) NewParam(name string, t Type) ValueId {
	id := self.NewValue(t)
	self.values[id].Name = name
	self.values[id].Out = len(self.Params)
	self.Params = append(self.Params, id)
	return id
}

// NewBlock creates an empty block owned by the given region op.
func (self *Func) NewBlock(parent OpId) *Block {
	bb := &Block{Id: BlockId(len(self.blocks)), Parent: parent}
	self.blocks = append(self.blocks, bb)
	return bb
}

// newOp allocates an operation record with fresh result values. The op is
// not attached to any block yet.
func (self *Func) newOp(kind OpKind, args []ValueId, results []Type, aux Aux) *Op {
	p := &Op{
		Id:    OpId(len(self.ops)),
		Kind:  kind,
		Block: -1,
		Args:  args,
		Aux:   aux,
	}
	for i, t := range results {
		id := self.NewValue(t)
		self.values[id].Def = p.Id
		self.values[id].Out = i
		p.Results = append(p.Results, id)
		p.Ties = append(p.Ties, NoTie)
	}
	self.ops = append(self.ops, p)
	return p
}

// Append creates an op and places it at the end of the block.
func (self *Func) Append(bb *Block, kind OpKind, args []ValueId, results []Type, aux Aux) *Op {
	p := self.newOp(kind, args, results, aux)
	p.Block = bb.Id
	bb.Ops = append(bb.Ops, p.Id)
	return p
}

// InsertAt creates an op and places it at the given index of the block.
func (self *Func) InsertAt(bb *Block, index int, kind OpKind, args []ValueId, results []Type, aux Aux) *Op {
	p := self.newOp(kind, args, results, aux)
	self.attach(p, bb, index)
	return p
}

func (self *Func) attach(p *Op, bb *Block, index int) {
	p.Block = bb.Id
	bb.Ops = append(bb.Ops, NoOp)
	copy(bb.Ops[index+1:], bb.Ops[index:])
	bb.Ops[index] = p.Id
}

// Detach removes the op from its block without invalidating its record.
func (self *Func) Detach(p *Op) {
	bb := self.blocks[p.Block]
	i := self.IndexOf(p)
	bb.Ops = append(bb.Ops[:i], bb.Ops[i+1:]...)
	p.Block = -1
}

// Erase detaches the op and marks its record invalid. The arena slot is
// retained, so outstanding OpIds stay in range.
func (self *Func) Erase(p *Op) {
	if p.Block >= 0 {
		self.Detach(p)
	}
	p.Kind = OpInvalid
	p.Args = nil
	p.ResultDims = nil
	p.OperandDims = nil
}

// MoveBefore detaches the op and re-attaches it immediately before ref.
func (self *Func) MoveBefore(p *Op, ref *Op) {
	self.Detach(p)
	self.attach(p, self.blocks[ref.Block], self.IndexOf(ref))
}

// MoveToEnd detaches the op and appends it to the given block.
func (self *Func) MoveToEnd(p *Op, bb *Block) {
	self.Detach(p)
	p.Block = bb.Id
	bb.Ops = append(bb.Ops, p.Id)
}

// IndexOf returns the position of the op within its block.
func (self *Func) IndexOf(p *Op) int {
	for i, id := range self.blocks[p.Block].Ops {
		if id == p.Id {
			return i
		}
	}
	panic(fmt.Sprintf("tir: op %d not in block %d", p.Id, p.Block))
}

// PosOf returns the position of the op as a Pos.
func (self *Func) PosOf(p *Op) Pos {
	return Pos{Block: p.Block, Index: self.IndexOf(p)}
}

// forEachOperand visits every value slot the op reads: ordinary
// arguments, then result dims, then operand dims.
func (self *Func) forEachOperand(p *Op, fn func(slot *ValueId)) {
	for i := range p.Args {
		fn(&p.Args[i])
	}
	for _, dims := range p.ResultDims {
		for i := range dims {
			fn(&dims[i])
		}
	}
	for _, dims := range p.OperandDims {
		for i := range dims {
			fn(&dims[i])
		}
	}
}

// Use records one read of a value. Index is the position within the
// consumer's ordinary argument list, or -1 when the value is only read
// through a dim list.
type Use struct {
	Op    OpId
	Index int
}

// UsesOf scans the whole function for reads of v. Passes call this per
// candidate; the arenas are small enough that a fresh scan is cheaper
// than keeping use lists coherent across rewrites.
func (self *Func) UsesOf(v ValueId) []Use {
	var uses []Use
	for _, p := range self.ops {
		if p.Kind == OpInvalid {
			continue
		}
		seen := false
		for i, a := range p.Args {
			if a == v {
				uses = append(uses, Use{Op: p.Id, Index: i})
				seen = true
			}
		}
		if !seen {
			self.forEachOperand(p, func(slot *ValueId) {
				if !seen && *slot == v {
					uses = append(uses, Use{Op: p.Id, Index: -1})
					seen = true
				}
			})
		}
	}
	return uses
}

// NumUses counts the consumers of v (an op counts once even if it reads
// v in several slots).
func (self *Func) NumUses(v ValueId) int {
	return len(self.UsesOf(v))
}

// ReplaceAllUses rewrites every read of old to new across the function.
func (self *Func) ReplaceAllUses(old ValueId, new ValueId) {
	for _, p := range self.ops {
		if p.Kind == OpInvalid {
			continue
		}
		self.forEachOperand(p, func(slot *ValueId) {
			if *slot == old {
				*slot = new
			}
		})
	}
}

// ReplaceUsesIn rewrites reads of old to new within a single op.
func (self *Func) ReplaceUsesIn(p *Op, old ValueId, new ValueId) {
	self.forEachOperand(p, func(slot *ValueId) {
		if *slot == old {
			*slot = new
		}
	})
}

// Walk visits every live op of the function in program order, outermost
// block first, descending into region bodies at their position.
func (self *Func) Walk(fn func(p *Op)) {
	self.walkBlock(self.Entry(), fn)
}

func (self *Func) walkBlock(bb *Block, fn func(p *Op)) {
	for _, id := range append([]OpId(nil), bb.Ops...) {
		p := self.ops[id]
		if p.Kind == OpInvalid {
			continue
		}
		fn(p)
		if p.Kind == OpRegion {
			self.walkBlock(self.RegionBody(p), fn)
		}
	}
}

// RegionBody returns the body block of a region op.
func (self *Func) RegionBody(p *Op) *Block {
	if p.Kind != OpRegion {
		panic("tir: not a region op")
	}
	for _, bb := range self.blocks {
		if bb.Parent == p.Id {
			return bb
		}
	}
	panic(fmt.Sprintf("tir: region op %d has no body", p.Id))
}

// Terminator returns the final op of the block, or nil if the block is
// empty or unterminated.
func (self *Func) Terminator(bb *Block) *Op {
	if len(bb.Ops) == 0 {
		return nil
	}
	p := self.ops[bb.Ops[len(bb.Ops)-1]]
	if !p.Kind.IsTerminator() {
		return nil
	}
	return p
}

// Module is one compilation unit: public functions plus the executables
// split out of them by outlining.
type Module struct {
	Name  string
	Funcs []*Func
	Execs []*Executable
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

func (self *Module) AddFunc(f *Func) *Func {
	self.Funcs = append(self.Funcs, f)
	return f
}

// LookupExecutable finds an executable container by name.
func (self *Module) LookupExecutable(name string) *Executable {
	for _, ex := range self.Execs {
		if ex.Name == name {
			return ex
		}
	}
	return nil
}

// Executable is a standalone container of entry points. External
// executables are hand-authored: their exports carry no function body,
// only an optional declared layout.
type Executable struct {
	Name     string
	External bool
	Exports  []*Export
}

func (self *Executable) LookupExport(name string) *Export {
	for _, ep := range self.Exports {
		if ep.Name == name {
			return ep
		}
	}
	return nil
}

// Export is one named entry point of an executable. Layout is assigned by
// the interface materializer; Declared is the author-supplied layout of
// an external export, validated (never silently overridden) during
// materialization.
type Export struct {
	Name     string
	Func     *Func
	Layout   *abi.PipelineLayout
	Declared *abi.PipelineLayout
}
