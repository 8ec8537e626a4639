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

	"github.com/pkg/errors"
)

// Verify checks the structural invariants every pass relies on: operand
// dominance, tie well-formedness, region escape discipline, and subspan
// offset alignment. Passes assume these hold unconditionally, so
// verification failures abort compilation of the whole module.
func (self *Func) Verify() error {
	var err error
	self.Walk(func(p *Op) {
		if err != nil {
			return
		}
		err = self.verifyOp(p)
	})
	return err
}

func (self *Func) verifyOp(p *Op) error {
	at := Before(self, p)

	/* every operand must dominate the op */
	var bad ValueId = NoValue
	self.forEachOperand(p, func(slot *ValueId) {
		if bad == NoValue && !self.IsValueUsable(*slot, at) {
			bad = *slot
		}
	})
	if bad != NoValue {
		return errors.Errorf("op %s: operand %s not usable at %s", self.FormatOp(p), self.valueName(bad), at)
	}

	/* ties must be in range, at most one per result, size-compatible */
	for i, t := range p.Ties {
		if t == NoTie {
			continue
		}
		if t < 0 || t >= len(p.Args) {
			return errors.Errorf("op %s: tie %d out of range", self.FormatOp(p), t)
		}
		rt := self.values[p.Results[i]].Type
		if ot := self.values[p.Args[t]].Type; !rt.SameSizeAs(ot) {
			return errors.Errorf("op %s: tied result %d size %s incompatible with operand size %s", self.FormatOp(p), i, rt, ot)
		}
	}

	/* region bodies must not leak definitions */
	if p.Kind == OpRegion {
		if err := self.verifyRegion(p); err != nil {
			return err
		}
	}

	/* subspan byte offsets must be element aligned, the offset folding
	 * pass divides without re-checking */
	if aux, ok := p.Aux.(*BindingSubspanAux); ok {
		if w := self.values[p.Results[0]].Type.Elem.Size(); aux.ByteOffset%w != 0 {
			return errors.Errorf("op %s: byte offset %d not divisible by element width %d", self.FormatOp(p), aux.ByteOffset, w)
		}
	}
	return nil
}

func (self *Func) verifyRegion(p *Op) error {
	bb := self.RegionBody(p)
	term := self.Terminator(bb)
	if term == nil || term.Kind != OpYield {
		return errors.Errorf("region op %d: body must end in yield", p.Id)
	}
	if len(term.Args) != len(p.Results) {
		return errors.Errorf("region op %d: yield count %d != result count %d", p.Id, len(term.Args), len(p.Results))
	}

	/* collect everything defined inside */
	inside := make(map[ValueId]struct{})
	self.walkBlock(bb, func(q *Op) {
		for _, r := range q.Results {
			inside[r] = struct{}{}
		}
	})

	/* a defined value may only escape through the yield */
	yielded := make(map[ValueId]struct{}, len(term.Args))
	for _, v := range term.Args {
		yielded[v] = struct{}{}
	}
	var err error
	for v := range inside {
		for _, u := range self.UsesOf(v) {
			q := self.ops[u.Op]
			if self.enclosedBy(q.Block, bb.Id) {
				continue
			}
			if _, ok := yielded[v]; !ok {
				err = errors.Errorf("region op %d: value %s escapes without yield", p.Id, self.valueName(v))
				return err
			}
		}
	}
	return nil
}

// enclosedBy reports whether block bb is target or nested inside it.
func (self *Func) enclosedBy(bb BlockId, target BlockId) bool {
	for {
		if bb == target {
			return true
		}
		parent := self.blocks[bb].Parent
		if parent == NoOp {
			return false
		}
		bb = self.ops[parent].Block
	}
}

// Verify checks every function and export body of the module.
func (self *Module) Verify() error {
	for _, f := range self.Funcs {
		if err := f.Verify(); err != nil {
			return errors.WithMessage(err, fmt.Sprintf("func @%s", f.Name))
		}
	}
	for _, ex := range self.Execs {
		for _, ep := range ex.Exports {
			if ep.Func == nil {
				continue
			}
			if err := ep.Func.Verify(); err != nil {
				return errors.WithMessage(err, fmt.Sprintf("executable @%s export @%s", ex.Name, ep.Name))
			}
		}
	}
	return nil
}
