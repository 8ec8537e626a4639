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

// Package debug reports workload statistics about a compiled module.
// Everything here is advisory, derived from the same cost heuristic that
// names dispatches; it never feeds back into compilation.
package debug

import (
	"github.com/davecgh/go-spew/spew"
	"gonum.org/v1/gonum/stat"

	"github.com/scottamain/iree-sub001/internal/tir"
)

// DispatchStats summarizes one dispatch site.
type DispatchStats struct {
	Executable string
	Export     string
	Cost       float64
	Unbounded  bool
	Bindings   int
}

// Report aggregates the dispatch workloads of one compiled module.
type Report struct {
	Dispatches []DispatchStats
	Unbounded  int
	MinCost    float64
	MaxCost    float64
	MeanCost   float64
	StdDev     float64
}

// GetReport scans a module for dispatch sites and aggregates their
// static workload costs.
func GetReport(m *tir.Module) Report {
	var ret Report
	var costs []float64

	for _, f := range m.Funcs {
		f.Walk(func(p *tir.Op) {
			if p.Kind != tir.OpDispatch {
				return
			}
			aux := p.Aux.(*tir.DispatchAux)
			s := DispatchStats{
				Executable: aux.Executable,
				Export:     aux.Export,
				Bindings:   len(aux.Bindings),
			}
			c := workloadCost(aux.Workload)
			if c < 0 {
				s.Unbounded = true
				ret.Unbounded++
			} else {
				s.Cost = c
				costs = append(costs, c)
			}
			ret.Dispatches = append(ret.Dispatches, s)
		})
	}

	if len(costs) != 0 {
		ret.MinCost, ret.MaxCost = costs[0], costs[0]
		for _, c := range costs {
			if c < ret.MinCost {
				ret.MinCost = c
			}
			if c > ret.MaxCost {
				ret.MaxCost = c
			}
		}
		ret.MeanCost = stat.Mean(costs, nil)
		ret.StdDev = stat.StdDev(costs, nil)
	}
	return ret
}

func workloadCost(workload []int64) float64 {
	c := float64(1)
	for _, w := range workload {
		if w == tir.DynDim {
			return -1
		}
		c *= float64(w)
	}
	return c
}

// Dump pretty-prints the report to stderr.
func Dump(r Report) {
	spew.Config.SortKeys = true
	spew.Dump(r)
}
