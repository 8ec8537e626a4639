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
)

// Pos addresses one insertion point: immediately before Ops[Index] of the
// block. Index == len(Ops) addresses the end of the block.
type Pos struct {
	Block BlockId
	Index int
}

func (self Pos) String() string {
	return fmt.Sprintf("bb_%d.ops[%d]", self.Block, self.Index)
}

// Before returns the position immediately preceding the op.
func Before(f *Func, p *Op) Pos {
	return Pos{Block: p.Block, Index: f.IndexOf(p)}
}

// After returns the position immediately following the op.
func After(f *Func, p *Op) Pos {
	return Pos{Block: p.Block, Index: f.IndexOf(p) + 1}
}

// enclosingIndex returns the position that the (transitive) region op
// owning block bb occupies in the target block, or -1 when target does
// not enclose bb.
func (self *Func) enclosingIndex(bb BlockId, target BlockId) int {
	for bb != target {
		parent := self.blocks[bb].Parent
		if parent == NoOp {
			return -1
		}
		p := self.ops[parent]
		if p.Block == target {
			return self.IndexOf(p)
		}
		bb = p.Block
	}
	return -1
}

// IsValueUsable reports whether v may be read at the insertion point
// without a use-before-def.
//
// Three tiers, cheapest first: function parameters dominate everything;
// a producer in the same block is compared by position; otherwise the
// block-ancestor walk decides whether the producer's block encloses the
// insertion point. The general walk is linear in region nesting depth;
// callers iterating many candidates should hoist what they can.
func (self *Func) IsValueUsable(v ValueId, at Pos) bool {
	vv := self.values[v]

	/* tier 1: parameters dominate the whole function */
	if vv.Def == NoOp {
		return true
	}

	/* producer must still be attached */
	def := self.ops[vv.Def]
	if def.Kind == OpInvalid || def.Block < 0 {
		return false
	}

	/* tier 2: same block, compare positions */
	if def.Block == at.Block {
		return self.IndexOf(def) < at.Index
	}

	/* tier 2b: entry-block fast path, a top-level def dominates every
	 * nested position that follows its enclosing region op */
	if def.Block == 0 {
		i := self.enclosingIndex(at.Block, 0)
		return i >= 0 && self.IndexOf(def) < i
	}

	/* tier 3: general ancestor walk */
	i := self.enclosingIndex(at.Block, def.Block)
	return i >= 0 && self.IndexOf(def) < i
}

// IsUsableByOp reports whether v may be read by the op at its current
// position.
func (self *Func) IsUsableByOp(v ValueId, p *Op) bool {
	return self.IsValueUsable(v, Before(self, p))
}
