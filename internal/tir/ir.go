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
	"strings"
)

type (
	ValueId int32
	OpId    int32
	BlockId int32
)

const (
	NoValue ValueId = -1
	NoOp    OpId    = -1
	NoTie   int     = -1
)

// DynDim marks a dimension whose extent is only known at runtime.
const DynDim int64 = -1

type ElemType uint8

const (
	I1 ElemType = iota
	I8
	I32
	I64
	F16
	F32
)

// Size returns the storage width of the element type in bytes.
func (self ElemType) Size() int64 {
	switch self {
	case I1, I8:
		return 1
	case F16:
		return 2
	case I32, F32:
		return 4
	case I64:
		return 8
	default:
		panic("tir: invalid element type")
	}
}

func (self ElemType) String() string {
	switch self {
	case I1:
		return "i1"
	case I8:
		return "i8"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F16:
		return "f16"
	case F32:
		return "f32"
	default:
		panic("tir: invalid element type")
	}
}

type TypeKind uint8

const (
	KScalar TypeKind = iota
	KTensor
	KBuffer
)

// Type describes an SSA value: a scalar, a logical tensor, or a
// kernel-visible buffer. Tensor and buffer dimensions may be DynDim,
// in which case the concrete extent is carried by a separate dynamic
// dimension value (see Op.ResultDims).
type Type struct {
	Kind TypeKind
	Elem ElemType
	Dims []int64
}

func Scalar(e ElemType) Type {
	return Type{Kind: KScalar, Elem: e}
}

func Tensor(e ElemType, dims ...int64) Type {
	return Type{Kind: KTensor, Elem: e, Dims: dims}
}

func Buffer(e ElemType, dims ...int64) Type {
	return Type{Kind: KBuffer, Elem: e, Dims: dims}
}

func (self Type) Rank() int {
	return len(self.Dims)
}

func (self Type) IsScalar() bool {
	return self.Kind == KScalar
}

func (self Type) IsResource() bool {
	return self.Kind == KTensor || self.Kind == KBuffer
}

// NumDynDims counts the dimensions whose extent is unknown at compile time.
func (self Type) NumDynDims() int {
	n := 0
	for _, d := range self.Dims {
		if d == DynDim {
			n++
		}
	}
	return n
}

// StaticElemCount returns the total element count, or false if any
// dimension is dynamic.
func (self Type) StaticElemCount() (int64, bool) {
	n := int64(1)
	for _, d := range self.Dims {
		if d == DynDim {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// StaticByteSize returns the total byte size, or false for dynamic shapes.
func (self Type) StaticByteSize() (int64, bool) {
	n, ok := self.StaticElemCount()
	if !ok {
		return 0, false
	}
	return n * self.Elem.Size(), true
}

func (self Type) dimString() string {
	ss := make([]string, 0, len(self.Dims)+1)
	for _, d := range self.Dims {
		if d == DynDim {
			ss = append(ss, "?")
		} else {
			ss = append(ss, fmt.Sprint(d))
		}
	}
	ss = append(ss, self.Elem.String())
	return strings.Join(ss, "x")
}

func (self Type) String() string {
	switch self.Kind {
	case KScalar:
		return self.Elem.String()
	case KTensor:
		return fmt.Sprintf("tensor<%s>", self.dimString())
	case KBuffer:
		return fmt.Sprintf("buffer<%s>", self.dimString())
	default:
		panic("tir: invalid type kind")
	}
}

// SameSizeAs reports whether two resource types describe the same extents.
// Dynamic dimensions are position-compatible only with dynamic dimensions.
func (self Type) SameSizeAs(other Type) bool {
	if len(self.Dims) != len(other.Dims) || self.Elem != other.Elem {
		return false
	}
	for i, d := range self.Dims {
		if d != other.Dims[i] {
			return false
		}
	}
	return true
}

// Value is a record in the per-function value arena. Def is the index of
// the producing operation, or NoOp for function parameters. Out is the
// result position within the producer.
type Value struct {
	Id   ValueId
	Type Type
	Def  OpId
	Out  int
	Name string
}

type OpKind uint8

const (
	OpInvalid OpKind = iota
	OpConst
	OpAdd
	OpMul
	OpDim
	OpEmpty
	OpGeneric
	OpSlice
	OpUpdate
	OpRegion
	OpYield
	OpDispatch
	OpConstantLoad
	OpBindingSubspan
	OpLoad
	OpStore
	OpReturn
	opKindMax
)

// opInfo is the closed registry of per-kind properties. Adding a kind
// requires a new row here, keeping every switch over OpKind exhaustive.
type opInfo struct {
	name       string
	effects    bool // observable side effects (cannot be cloned or erased freely)
	terminator bool
	shapeAware bool // reports dynamic result dims via Op.ResultDims
}

var opTab = [opKindMax]opInfo{
	OpInvalid:        {name: "invalid"},
	OpConst:          {name: "const"},
	OpAdd:            {name: "add"},
	OpMul:            {name: "mul"},
	OpDim:            {name: "dim"},
	OpEmpty:          {name: "empty", shapeAware: true},
	OpGeneric:        {name: "generic", shapeAware: true},
	OpSlice:          {name: "slice"},
	OpUpdate:         {name: "update"},
	OpRegion:         {name: "dispatch.region", shapeAware: true},
	OpYield:          {name: "yield", terminator: true},
	OpDispatch:       {name: "dispatch", effects: true, shapeAware: true},
	OpConstantLoad:   {name: "constant.load"},
	OpBindingSubspan: {name: "binding.subspan"},
	OpLoad:           {name: "load"},
	OpStore:          {name: "store", effects: true},
	OpReturn:         {name: "return", terminator: true},
}

func (self OpKind) String() string {
	return opTab[self].name
}

// HasSideEffects reports whether ops of this kind may not be duplicated
// or dropped without changing program behaviour.
func (self OpKind) HasSideEffects() bool {
	return opTab[self].effects
}

func (self OpKind) IsTerminator() bool {
	return opTab[self].terminator
}

// ShapeAware reports whether ops of this kind publish the dynamic
// dimensions of their results through Op.ResultDims.
func (self OpKind) ShapeAware() bool {
	return opTab[self].shapeAware
}

// Aux is the kind-specific payload of an operation. The set of Aux types
// is closed, one per OpKind that needs one.
type Aux interface {
	aux()
}

// ConstAux holds the raw bits of a scalar constant.
type ConstAux struct {
	Bits uint64
}

// DimAux selects which dimension of the tensor operand a dim op queries.
type DimAux struct {
	Axis int
}

// GenericAux describes a generic loop-ranged computation. Loops holds the
// static iteration extents, DynDim for ranges only known at runtime.
type GenericAux struct {
	Name  string
	Loops []int64
}

// SliceAux extracts a statically sized sub-view at static offsets.
type SliceAux struct {
	Offsets []int64
	Sizes   []int64
}

// UpdateAux writes the source operand into the target operand at the
// given static offsets. The result is tied to the target.
type UpdateAux struct {
	Offsets []int64
}

// DispatchAux is the call-site payload of an outlined executable
// invocation.
//
// Workload is the advisory grid shape derived from the region's dominant
// operation, DynDim where unknown. Bindings is nil until the interface
// materializer annotates the site; afterwards it maps every argument
// position to its ABI slot and is never re-derived. ResultOffsets holds,
// per result, the static element offsets at which an emplaced result is
// written into its tied target (nil when the result is not emplaced).
type DispatchAux struct {
	Executable    string
	Export        string
	Workload      []int64
	Bindings      []BindingRef
	ResultOffsets [][]int64
}

// BindingRef is one slot of a dispatch-site binding map.
type BindingRef struct {
	PushConstant bool
	Ordinal      uint32
	Set          uint32
	Binding      uint32
}

func (self BindingRef) String() string {
	if self.PushConstant {
		return fmt.Sprintf("pc[%d]", self.Ordinal)
	}
	return fmt.Sprintf("set(%d) binding(%d)", self.Set, self.Binding)
}

// ConstantLoadAux reads one push constant by ordinal.
type ConstantLoadAux struct {
	Ordinal uint32
}

// BindingSubspanAux reads a descriptor-set binding as a buffer view
// starting at ByteOffset.
type BindingSubspanAux struct {
	Set        uint32
	Binding    uint32
	ByteOffset int64
}

func (*ConstAux) aux()          {}
func (*DimAux) aux()            {}
func (*GenericAux) aux()        {}
func (*SliceAux) aux()          {}
func (*UpdateAux) aux()         {}
func (*DispatchAux) aux()       {}
func (*ConstantLoadAux) aux()   {}
func (*BindingSubspanAux) aux() {}

// Op is a record in the per-function operation arena.
//
// Args are the ordinary operands. ResultDims, parallel to Results, lists
// the dynamic dimension values describing each result's shape for
// shape-aware kinds. OperandDims, parallel to Args, lets a dispatch site
// republish the dynamic dimensions of its tensor operands so the shape
// oracle can recover them with a downward walk. Ties maps each result to
// the operand index sharing its backing storage, or NoTie.
type Op struct {
	Id          OpId
	Kind        OpKind
	Block       BlockId
	Args        []ValueId
	Results     []ValueId
	Ties        []int
	ResultDims  [][]ValueId
	OperandDims [][]ValueId
	Aux         Aux
}

// Tie returns the operand index the given result is tied to, or NoTie.
func (self *Op) Tie(result int) int {
	if result >= len(self.Ties) {
		return NoTie
	}
	return self.Ties[result]
}

// SetTie ties the given result to the given operand index.
func (self *Op) SetTie(result int, operand int) {
	for len(self.Ties) < len(self.Results) {
		self.Ties = append(self.Ties, NoTie)
	}
	self.Ties[result] = operand
}

// TiedSlot reports whether any result of this op is tied to the operand
// at index arg.
func (self *Op) TiedSlot(arg int) bool {
	for _, t := range self.Ties {
		if t == arg {
			return true
		}
	}
	return false
}

// Block is an ordered list of operations. The entry block has Parent set
// to NoOp; a region body points back at its region op.
type Block struct {
	Id     BlockId
	Parent OpId
	Ops    []OpId
}
