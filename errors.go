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

package tensorc

import (
	"github.com/scottamain/iree-sub001/internal/tir"
)

// ABIError occurs when an export carries an argument the binding
// interface cannot express. Fatal for the whole module.
type ABIError = tir.ABIError

// ShapeError occurs when no dominating dynamic-dimension value can be
// found or synthesized for a value being rewritten.
type ShapeError = tir.ShapeError

// StructuralError occurs when a pass precondition is violated, e.g. an
// empty dispatch region.
type StructuralError = tir.StructuralError
