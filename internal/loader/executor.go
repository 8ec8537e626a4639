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

package loader

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Dispatch validates the state against the export's layout and runs the
// kernel once per workgroup, fanning out across workers. Workgroups of
// one dispatch are independent by contract; ordering between dispatches
// is the caller's dependency-edge responsibility.
func (self *Executable) Dispatch(ctx context.Context, export string, state *DispatchState, workers int) error {
	ep, ok := self.exports[export]
	if !ok {
		return errors.Errorf("loader: no such export %q", export)
	}
	if err := ep.validate(state); err != nil {
		return err
	}

	cnt := state.WorkgroupCount
	for i, c := range cnt {
		if c == 0 {
			cnt[i] = 1
		}
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for z := uint32(0); z < cnt[2]; z++ {
		for y := uint32(0); y < cnt[1]; y++ {
			for x := uint32(0); x < cnt[0]; x++ {
				wg := &WorkgroupState{WorkgroupID: [3]uint32{x, y, z}}
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					if rc := ep.Kernel(&self.env, state, wg); rc != 0 {
						return errors.Errorf("loader: export %q: workgroup (%d,%d,%d) failed with status %d",
							ep.Name, wg.WorkgroupID[0], wg.WorkgroupID[1], wg.WorkgroupID[2], rc)
					}
					return nil
				})
			}
		}
	}
	return g.Wait()
}
