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

// ABIError occurs when an export carries an argument that cannot be
// expressed through the binding interface: anything other than a resource
// or a 32-bit scalar.
type ABIError struct {
	Export string
	Arg    int
	Type   Type
}

func (self ABIError) Error() string {
	return fmt.Sprintf("ABIError(@%s): argument %d has unsupported type %s", self.Export, self.Arg, self.Type)
}

// ShapeError occurs when no dominating dynamic dimension value can be
// found or synthesized for a value being rewritten.
type ShapeError struct {
	Func  string
	Value string
	At    Pos
}

func (self ShapeError) Error() string {
	return fmt.Sprintf("ShapeError(@%s): no usable dynamic dims for %s at %s", self.Func, self.Value, self.At)
}

// StructuralError occurs when a pass precondition is violated, e.g. an
// empty dispatch region. It aborts compilation of the whole module.
type StructuralError struct {
	Pass   string
	Func   string
	Reason string
}

func (self StructuralError) Error() string {
	return fmt.Sprintf("StructuralError(%s, @%s): %s", self.Pass, self.Func, self.Reason)
}
