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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanGrowRegion(t *testing.T) {
	o := GetDefaultOptions()
	require.True(t, o.CanGrowRegion(0))
	require.True(t, o.CanGrowRegion(1<<20))

	o.MaxRegionOps = 4
	require.True(t, o.CanGrowRegion(3))
	require.False(t, o.CanGrowRegion(4))
}
