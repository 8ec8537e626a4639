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

package opts

type Options struct {
	MaxRegionOps int
	NoEmplace    bool
	DebugDumps   bool
	Workers      int
}

// CanGrowRegion reports whether a region holding n ops may absorb more.
func (self *Options) CanGrowRegion(n int) bool {
	return self.MaxRegionOps == 0 || n < self.MaxRegionOps
}

func GetDefaultOptions() Options {
	return Options{
		MaxRegionOps: 0,
		NoEmplace:    false,
		DebugDumps:   false,
		Workers:      0,
	}
}
