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

// Package abi defines the binding contract between compiled executables
// and the runtime loader: descriptor-set layouts, push constants, and
// their wire encoding. The layout of an export is decided once at compile
// time and never re-derived, so every concurrent execution of the same
// export observes an identical schema.
package abi

import (
	"fmt"

	"github.com/pkg/errors"
)

type BindingType uint8

const (
	StorageBuffer BindingType = iota
	UniformBuffer
)

func (self BindingType) String() string {
	switch self {
	case StorageBuffer:
		return "storage"
	case UniformBuffer:
		return "uniform"
	default:
		return fmt.Sprintf("BindingType(%d)", uint8(self))
	}
}

type BindingFlags uint8

const (
	FlagNone     BindingFlags = 0
	FlagReadOnly BindingFlags = 1 << 0
)

// Binding is one descriptor slot of a set layout.
type Binding struct {
	Ordinal uint32
	Type    BindingType
	Flags   BindingFlags
}

func (self Binding) ReadOnly() bool {
	return self.Flags&FlagReadOnly != 0
}

func (self Binding) String() string {
	s := fmt.Sprintf("binding(%d, %s", self.Ordinal, self.Type)
	if self.ReadOnly() {
		s += ", ro"
	}
	return s + ")"
}

// DescriptorSetLayout is one ordered set of bindings.
type DescriptorSetLayout struct {
	Ordinal  uint32
	Bindings []Binding
}

// PipelineLayout is the full schema of descriptor sets and push constants
// an executable export expects.
type PipelineLayout struct {
	Sets          []DescriptorSetLayout
	PushConstants uint32
}

// NumBindings counts the descriptor slots across all sets.
func (self *PipelineLayout) NumBindings() int {
	n := 0
	for _, s := range self.Sets {
		n += len(s.Bindings)
	}
	return n
}

// Find returns the binding at (set, binding), or false.
func (self *PipelineLayout) Find(set uint32, binding uint32) (Binding, bool) {
	for _, s := range self.Sets {
		if s.Ordinal != set {
			continue
		}
		for _, b := range s.Bindings {
			if b.Ordinal == binding {
				return b, true
			}
		}
	}
	return Binding{}, false
}

// Validate checks the structural invariants of the layout: binding
// ordinals within a set are unique and contiguous from zero, set ordinals
// likewise.
func (self *PipelineLayout) Validate() error {
	for i, s := range self.Sets {
		if int(s.Ordinal) != i {
			return errors.Errorf("abi: set ordinal %d at position %d", s.Ordinal, i)
		}
		for j, b := range s.Bindings {
			if int(b.Ordinal) != j {
				return errors.Errorf("abi: set %d: binding ordinal %d at position %d", s.Ordinal, b.Ordinal, j)
			}
		}
	}
	return nil
}

// Equal reports whether two layouts describe the same schema.
func (self *PipelineLayout) Equal(other *PipelineLayout) bool {
	if other == nil || self.PushConstants != other.PushConstants || len(self.Sets) != len(other.Sets) {
		return false
	}
	for i, s := range self.Sets {
		o := other.Sets[i]
		if s.Ordinal != o.Ordinal || len(s.Bindings) != len(o.Bindings) {
			return false
		}
		for j, b := range s.Bindings {
			if b != o.Bindings[j] {
				return false
			}
		}
	}
	return true
}

func (self *PipelineLayout) String() string {
	s := fmt.Sprintf("layout(pc=%d", self.PushConstants)
	for _, set := range self.Sets {
		s += fmt.Sprintf(", set %d: ", set.Ordinal)
		for i, b := range set.Bindings {
			if i > 0 {
				s += " "
			}
			s += b.String()
		}
	}
	return s + ")"
}
