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

package target

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHost(t *testing.T) {
	h := Host()
	require.Equal(t, "host", h.Name)
	require.Equal(t, runtime.GOARCH, h.Arch)
}

func TestDefaultEnumerator(t *testing.T) {
	ts := DefaultEnumerator()
	require.Len(t, ts, 1)
	require.Equal(t, Host().Name, ts[0].Name)
}
