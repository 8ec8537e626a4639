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

// Builder appends operations to one block of a function. It is a thin
// positional cursor; all state lives in the function arenas.
type Builder struct {
	fn *Func
	bb *Block
}

func NewBuilder(f *Func) *Builder {
	return &Builder{fn: f, bb: f.Entry()}
}

func (self *Builder) Func() *Func {
	return self.fn
}

func (self *Builder) Block() *Block {
	return self.bb
}

// SetBlock moves the cursor to the end of another block.
func (self *Builder) SetBlock(bb *Block) {
	self.bb = bb
}

// ConstI64 materializes a 64-bit integer constant.
func (self *Builder) ConstI64(v int64) ValueId {
	p := self.fn.Append(self.bb, OpConst, nil, []Type{Scalar(I64)}, &ConstAux{Bits: uint64(v)})
	return p.Results[0]
}

// ConstI32 materializes a 32-bit integer constant.
func (self *Builder) ConstI32(v int32) ValueId {
	p := self.fn.Append(self.bb, OpConst, nil, []Type{Scalar(I32)}, &ConstAux{Bits: uint64(uint32(v))})
	return p.Results[0]
}

// Add emits an integer add over two scalars of the same type.
func (self *Builder) Add(a ValueId, b ValueId) ValueId {
	p := self.fn.Append(self.bb, OpAdd, []ValueId{a, b}, []Type{self.fn.ValueOf(a).Type}, nil)
	return p.Results[0]
}

// Mul emits an integer multiply over two scalars of the same type.
func (self *Builder) Mul(a ValueId, b ValueId) ValueId {
	p := self.fn.Append(self.bb, OpMul, []ValueId{a, b}, []Type{self.fn.ValueOf(a).Type}, nil)
	return p.Results[0]
}

// Dim queries the extent of one axis of a tensor value.
func (self *Builder) Dim(v ValueId, axis int) ValueId {
	p := self.fn.Append(self.bb, OpDim, []ValueId{v}, []Type{Scalar(I64)}, &DimAux{Axis: axis})
	return p.Results[0]
}

// Empty allocates an uninitialized tensor. dynDims supplies one extent
// value per DynDim axis, in axis order.
func (self *Builder) Empty(t Type, dynDims ...ValueId) ValueId {
	p := self.fn.Append(self.bb, OpEmpty, append([]ValueId(nil), dynDims...), []Type{t}, nil)
	p.ResultDims = [][]ValueId{append([]ValueId(nil), dynDims...)}
	return p.Results[0]
}

// Generic emits a loop-ranged computation reading args and producing one
// result of the given type. dynDims describes the result's dynamic axes.
func (self *Builder) Generic(name string, loops []int64, args []ValueId, result Type, dynDims ...ValueId) ValueId {
	p := self.fn.Append(self.bb, OpGeneric, args, []Type{result}, &GenericAux{Name: name, Loops: loops})
	p.ResultDims = [][]ValueId{append([]ValueId(nil), dynDims...)}
	return p.Results[0]
}

// Slice extracts a statically shaped sub-view of src.
func (self *Builder) Slice(src ValueId, offsets []int64, sizes []int64) ValueId {
	t := Tensor(self.fn.ValueOf(src).Type.Elem, sizes...)
	p := self.fn.Append(self.bb, OpSlice, []ValueId{src}, []Type{t}, &SliceAux{Offsets: offsets, Sizes: sizes})
	return p.Results[0]
}

// Update writes src into target at the given offsets. The result aliases
// the target's storage and is tied to it.
func (self *Builder) Update(src ValueId, target ValueId, offsets []int64) ValueId {
	t := self.fn.ValueOf(target).Type
	p := self.fn.Append(self.bb, OpUpdate, []ValueId{src, target}, []Type{t}, &UpdateAux{Offsets: offsets})
	p.SetTie(0, 1)
	return p.Results[0]
}

// Load reads one element of a buffer at the given indices.
func (self *Builder) Load(buf ValueId, indices ...ValueId) ValueId {
	t := Scalar(self.fn.ValueOf(buf).Type.Elem)
	p := self.fn.Append(self.bb, OpLoad, append([]ValueId{buf}, indices...), []Type{t}, nil)
	return p.Results[0]
}

// Store writes one element of a buffer at the given indices.
func (self *Builder) Store(val ValueId, buf ValueId, indices ...ValueId) *Op {
	return self.fn.Append(self.bb, OpStore, append([]ValueId{val, buf}, indices...), nil, nil)
}

// ConstantLoad reads a push constant by ordinal.
func (self *Builder) ConstantLoad(ordinal uint32, t Type) ValueId {
	p := self.fn.Append(self.bb, OpConstantLoad, nil, []Type{t}, &ConstantLoadAux{Ordinal: ordinal})
	return p.Results[0]
}

// BindingSubspan reads a descriptor binding as a buffer view.
func (self *Builder) BindingSubspan(set uint32, binding uint32, byteOffset int64, t Type) ValueId {
	p := self.fn.Append(self.bb, OpBindingSubspan, nil, []Type{t}, &BindingSubspanAux{Set: set, Binding: binding, ByteOffset: byteOffset})
	return p.Results[0]
}

// Return terminates the current block with a function return.
func (self *Builder) Return(vals ...ValueId) *Op {
	return self.fn.Append(self.bb, OpReturn, vals, nil, nil)
}

// Yield terminates a region body, forwarding vals to the region results.
func (self *Builder) Yield(vals ...ValueId) *Op {
	return self.fn.Append(self.bb, OpYield, vals, nil, nil)
}

// Dispatch emits a call site of an outlined executable export.
func (self *Builder) Dispatch(executable string, export string, args []ValueId, results []Type, aux *DispatchAux) *Op {
	if aux == nil {
		aux = new(DispatchAux)
	}
	aux.Executable = executable
	aux.Export = export
	p := self.fn.Append(self.bb, OpDispatch, args, results, aux)
	p.ResultDims = make([][]ValueId, len(results))
	p.OperandDims = make([][]ValueId, len(args))
	return p
}
