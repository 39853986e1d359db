/*
 * This file is part of VoxStream (https://github.com/voxstream/voxstream).
 * Copyright (C) 2025 VoxStream Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package decoder

import (
	"fmt"
	"sort"
)

// Weight is a two-component arc cost. Graph carries the search-graph (language
// model) contribution, Acoustic the per-frame score contribution. Lower is
// better; the total cost of a path is the sum over its arcs.
type Weight struct {
	Graph    float64
	Acoustic float64
}

// Cost returns the combined cost of the weight.
func (w Weight) Cost() float64 {
	return w.Graph + w.Acoustic
}

func (w Weight) add(o Weight) Weight {
	return Weight{Graph: w.Graph + o.Graph, Acoustic: w.Acoustic + o.Acoustic}
}

// Arc is a transition between lattice states labeled with an output symbol.
type Arc struct {
	Symbol int
	Weight Weight
	Next   int
}

// Lattice is an acyclic result graph. States are dense integers, Start is the
// unique entry state and Final maps accepting states to their exit weights.
type Lattice struct {
	Start int
	Arcs  [][]Arc
	Final map[int]Weight
}

// NewLattice returns an empty lattice with the given number of states.
func NewLattice(states int) *Lattice {
	return &Lattice{
		Arcs:  make([][]Arc, states),
		Final: make(map[int]Weight),
	}
}

// NumStates returns the number of states in the lattice.
func (l *Lattice) NumStates() int {
	return len(l.Arcs)
}

// AddArc appends an arc leaving state from.
func (l *Lattice) AddArc(from int, arc Arc) {
	l.Arcs[from] = append(l.Arcs[from], arc)
}

// SetFinal marks state as accepting with weight w.
func (l *Lattice) SetFinal(state int, w Weight) {
	l.Final[state] = w
}

// Scale multiplies the graph and acoustic components of every arc and final
// weight in place and returns the lattice.
func (l *Lattice) Scale(graphScale, acousticScale float64) *Lattice {
	for s := range l.Arcs {
		for i := range l.Arcs[s] {
			w := &l.Arcs[s][i].Weight
			w.Graph *= graphScale
			w.Acoustic *= acousticScale
		}
	}
	for s, w := range l.Final {
		w.Graph *= graphScale
		w.Acoustic *= acousticScale
		l.Final[s] = w
	}
	return l
}

// Path is a complete route through a lattice from the start state to an
// accepting state.
type Path struct {
	Symbols []int
	Weight  Weight
}

// Cost returns the combined cost of the path.
func (p Path) Cost() float64 {
	return p.Weight.Cost()
}

type hypothesis struct {
	state    int
	priority float64
	weight   Weight
	symbols  []int
}

// ShortestPaths returns up to n complete paths ordered by ascending total
// cost, final weights included. Paths with identical symbol sequences are
// collapsed to the cheapest one. Every complete path is enumerated before
// ranking, so truncation at n keeps the true top n even when the cost sits
// on final weights or on negative arcs. The lattice must be acyclic; a cycle
// makes the expansion unbounded, so the search aborts with an error once it
// exceeds a state-count derived cap.
func (l *Lattice) ShortestPaths(n int) ([]Path, error) {
	if n <= 0 {
		return nil, fmt.Errorf("shortest paths: n must be positive, got %d", n)
	}
	if len(l.Arcs) == 0 {
		return nil, nil
	}

	stack := []hypothesis{{state: l.Start}}
	var paths []Path
	rank := make(map[string]int)
	limit := expansionLimit(l, n)

	for pops := 0; len(stack) > 0; pops++ {
		if pops > limit {
			return nil, fmt.Errorf("shortest paths: expansion limit exceeded, result graph is too large or cyclic")
		}
		hyp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if final, ok := l.Final[hyp.state]; ok {
			total := hyp.weight.add(final)
			key := symbolKey(hyp.symbols)
			if i, ok := rank[key]; ok {
				if total.Cost() < paths[i].Cost() {
					paths[i].Weight = total
				}
			} else {
				rank[key] = len(paths)
				paths = append(paths, Path{Symbols: hyp.symbols, Weight: total})
			}
		}

		for _, arc := range l.Arcs[hyp.state] {
			symbols := make([]int, len(hyp.symbols), len(hyp.symbols)+1)
			copy(symbols, hyp.symbols)
			symbols = append(symbols, arc.Symbol)
			stack = append(stack, hypothesis{
				state:   arc.Next,
				weight:  hyp.weight.add(arc.Weight),
				symbols: symbols,
			})
		}
	}

	sort.SliceStable(paths, func(i, j int) bool { return paths[i].Cost() < paths[j].Cost() })
	if len(paths) > n {
		paths = paths[:n]
	}
	return paths, nil
}

// BestPath returns the single cheapest path through the lattice.
func (l *Lattice) BestPath() (Path, error) {
	paths, err := l.ShortestPaths(1)
	if err != nil {
		return Path{}, err
	}
	if len(paths) == 0 {
		return Path{}, fmt.Errorf("best path: no complete path in result graph")
	}
	return paths[0], nil
}

func expansionLimit(l *Lattice, n int) int {
	arcs := 0
	for _, out := range l.Arcs {
		arcs += len(out)
	}
	limit := (arcs + len(l.Arcs) + 1) * (n + 1) * 16
	if limit < 4096 {
		limit = 4096
	}
	return limit
}

func symbolKey(symbols []int) string {
	buf := make([]byte, 0, len(symbols)*3)
	for _, s := range symbols {
		buf = append(buf, byte(s), byte(s>>8), byte(s>>16))
	}
	return string(buf)
}
