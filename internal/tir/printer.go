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

func (self *Func) valueName(v ValueId) string {
	if vv := self.values[v]; vv.Name != "" {
		return "%" + vv.Name
	}
	return fmt.Sprintf("%%v%d", v)
}

func (self *Func) valueList(vs []ValueId) string {
	ss := make([]string, 0, len(vs))
	for _, v := range vs {
		ss = append(ss, self.valueName(v))
	}
	return strings.Join(ss, ", ")
}

func intList(vs []int64) string {
	ss := make([]string, 0, len(vs))
	for _, v := range vs {
		if v == DynDim {
			ss = append(ss, "?")
		} else {
			ss = append(ss, fmt.Sprint(v))
		}
	}
	return strings.Join(ss, ", ")
}

// FormatOp renders one operation for diagnostics.
func (self *Func) FormatOp(p *Op) string {
	var sb strings.Builder

	/* results and ties */
	if len(p.Results) != 0 {
		names := make([]string, 0, len(p.Results))
		for i, r := range p.Results {
			if t := p.Tie(i); t != NoTie {
				names = append(names, fmt.Sprintf("%s~arg%d", self.valueName(r), t))
			} else {
				names = append(names, self.valueName(r))
			}
		}
		sb.WriteString(strings.Join(names, ", "))
		sb.WriteString(" = ")
	}
	sb.WriteString(p.Kind.String())

	/* kind-specific payload */
	switch aux := p.Aux.(type) {
	case *ConstAux:
		fmt.Fprintf(&sb, " %d", int64(aux.Bits))
	case *DimAux:
		fmt.Fprintf(&sb, "[%d]", aux.Axis)
	case *GenericAux:
		fmt.Fprintf(&sb, " %q loops[%s]", aux.Name, intList(aux.Loops))
	case *SliceAux:
		fmt.Fprintf(&sb, " offsets[%s] sizes[%s]", intList(aux.Offsets), intList(aux.Sizes))
	case *UpdateAux:
		fmt.Fprintf(&sb, " offsets[%s]", intList(aux.Offsets))
	case *DispatchAux:
		fmt.Fprintf(&sb, " @%s::@%s", aux.Executable, aux.Export)
		if aux.Bindings != nil {
			refs := make([]string, 0, len(aux.Bindings))
			for _, b := range aux.Bindings {
				refs = append(refs, b.String())
			}
			fmt.Fprintf(&sb, " bindings(%s)", strings.Join(refs, ", "))
		}
	case *ConstantLoadAux:
		fmt.Fprintf(&sb, "[%d]", aux.Ordinal)
	case *BindingSubspanAux:
		fmt.Fprintf(&sb, " set(%d) binding(%d) offset(%d)", aux.Set, aux.Binding, aux.ByteOffset)
	}

	/* operands */
	if len(p.Args) != 0 {
		fmt.Fprintf(&sb, "(%s)", self.valueList(p.Args))
	}

	/* result types */
	if len(p.Results) != 0 {
		types := make([]string, 0, len(p.Results))
		for _, r := range p.Results {
			types = append(types, self.values[r].Type.String())
		}
		fmt.Fprintf(&sb, " : %s", strings.Join(types, ", "))
	}
	return sb.String()
}

func (self *Func) formatBlock(bb *Block, indent string, out *strings.Builder) {
	for _, id := range bb.Ops {
		p := self.ops[id]
		if p.Kind == OpInvalid {
			continue
		}
		out.WriteString(indent)
		out.WriteString(self.FormatOp(p))
		out.WriteString("\n")
		if p.Kind == OpRegion {
			self.formatBlock(self.RegionBody(p), indent+"    ", out)
		}
	}
}

func (self *Func) String() string {
	var sb strings.Builder
	params := make([]string, 0, len(self.Params))
	for _, v := range self.Params {
		params = append(params, fmt.Sprintf("%s: %s", self.valueName(v), self.values[v].Type))
	}
	fmt.Fprintf(&sb, "func @%s(%s) {\n", self.Name, strings.Join(params, ", "))
	self.formatBlock(self.Entry(), "    ", &sb)
	sb.WriteString("}")
	return sb.String()
}

func (self *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module @%s {\n", self.Name)
	for _, ex := range self.Execs {
		fmt.Fprintf(&sb, "  executable @%s {\n", ex.Name)
		for _, ep := range ex.Exports {
			if ep.Func == nil {
				fmt.Fprintf(&sb, "    export @%s (external)\n", ep.Name)
				continue
			}
			for _, line := range strings.Split(ep.Func.String(), "\n") {
				sb.WriteString("    " + line + "\n")
			}
		}
		sb.WriteString("  }\n")
	}
	for _, f := range self.Funcs {
		for _, line := range strings.Split(f.String(), "\n") {
			sb.WriteString("  " + line + "\n")
		}
	}
	sb.WriteString("}")
	return sb.String()
}
