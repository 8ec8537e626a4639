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

package abi

// uniformCapacity is the largest static resource eligible for the
// uniform buffer class. Anything bigger, writable or dynamically sized
// goes through a storage buffer.
const uniformCapacity = 64 * 1024

// ResourceRole describes one logical resource slot of an export, in role
// order. The assignment is a pure function of the roles, so every call
// site of the same export receives the same (set, binding) for a given
// role.
type ResourceRole struct {
	ByteSize int64 // -1 when dynamically sized
	ReadOnly bool
}

func classify(r ResourceRole) BindingType {
	if r.ReadOnly && r.ByteSize >= 0 && r.ByteSize <= uniformCapacity {
		return UniformBuffer
	}
	return StorageBuffer
}

// AssignLayout builds the pipeline layout for an export from its scalar
// count and resource roles. All bindings land in set 0, ordinals dense in
// role order.
func AssignLayout(pushConstants int, roles []ResourceRole) *PipelineLayout {
	set := DescriptorSetLayout{Ordinal: 0}
	for i, r := range roles {
		flags := FlagNone
		if r.ReadOnly {
			flags = FlagReadOnly
		}
		set.Bindings = append(set.Bindings, Binding{
			Ordinal: uint32(i),
			Type:    classify(r),
			Flags:   flags,
		})
	}
	return &PipelineLayout{
		Sets:          []DescriptorSetLayout{set},
		PushConstants: uint32(pushConstants),
	}
}

// DenseDefaultLayout is the ergonomic fallback for hand-authored
// executables that never went through binding analysis: set 0, one
// storage binding per resource in declaration order. A wrong guess is
// possible when the author's real layout differs, which is why declared
// layouts are validated instead whenever they exist.
func DenseDefaultLayout(pushConstants int, resources int) *PipelineLayout {
	set := DescriptorSetLayout{Ordinal: 0}
	for i := 0; i < resources; i++ {
		set.Bindings = append(set.Bindings, Binding{Ordinal: uint32(i), Type: StorageBuffer})
	}
	return &PipelineLayout{
		Sets:          []DescriptorSetLayout{set},
		PushConstants: uint32(pushConstants),
	}
}
