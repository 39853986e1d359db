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
	"container/heap"
	"fmt"
	"math"
	"sort"
)

// DeterminizeOptions control pruned determinization of a result graph.
type DeterminizeOptions struct {
	// Beam prunes complete paths whose cost exceeds the best path's cost
	// plus Beam.
	Beam float64
	// PruneInterval is the number of hypothesis expansions between
	// intermediate pruning passes.
	PruneInterval int
	// PruneScale tightens the beam during intermediate pruning: the working
	// cutoff is best + Beam*(1 - PruneScale).
	PruneScale float64
	// HashRatio bounds the live hypothesis set relative to the input
	// lattice's state count.
	HashRatio float64
}

// Determinize rebuilds the lattice so that no two paths carry the same symbol
// sequence, keeping the cheapest weight for each sequence, and prunes paths
// costing more than Beam over the best. The result is a prefix tree over the
// surviving sequences.
func Determinize(l *Lattice, opts DeterminizeOptions) (*Lattice, error) {
	if opts.Beam <= 0 {
		return nil, fmt.Errorf("determinize: beam must be positive, got %f", opts.Beam)
	}
	if opts.PruneInterval <= 0 {
		return nil, fmt.Errorf("determinize: prune interval must be positive, got %d", opts.PruneInterval)
	}
	if len(l.Arcs) == 0 {
		return NewLattice(0), nil
	}

	paths, err := prunedPaths(l, opts)
	if err != nil {
		return nil, err
	}
	return buildPrefixTree(paths), nil
}

type hypothesisHeap []hypothesis

func (h hypothesisHeap) Len() int            { return len(h) }
func (h hypothesisHeap) Less(i, j int) bool  { return h[i].priority < h[j].priority }
func (h hypothesisHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hypothesisHeap) Push(x interface{}) { *h = append(*h, x.(hypothesis)) }
func (h *hypothesisHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// completionCosts returns, per state, the cheapest cost from that state to an
// accepting state, including the final weight. States that cannot reach one
// get +Inf. Fails if the lattice has a cycle.
func completionCosts(l *Lattice) ([]float64, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	comp := make([]float64, len(l.Arcs))
	color := make([]int, len(l.Arcs))

	var visit func(s int) error
	visit = func(s int) error {
		switch color[s] {
		case visiting:
			return fmt.Errorf("determinize: result graph is not acyclic")
		case done:
			return nil
		}
		color[s] = visiting

		best := math.Inf(1)
		if final, ok := l.Final[s]; ok {
			best = final.Cost()
		}
		for _, arc := range l.Arcs[s] {
			if err := visit(arc.Next); err != nil {
				return err
			}
			if c := arc.Weight.Cost() + comp[arc.Next]; c < best {
				best = c
			}
		}
		comp[s] = best
		color[s] = done
		return nil
	}

	for s := range l.Arcs {
		if err := visit(s); err != nil {
			return nil, err
		}
	}
	return comp, nil
}

// prunedPaths enumerates complete paths, collapsing duplicate symbol
// sequences and applying the beam around the best complete path. Hypotheses
// are ordered by their accumulated cost plus the exact cheapest completion
// cost of their state; that bound holds regardless of arc cost signs, so a
// hypothesis over the cutoff can be discarded without losing any path inside
// the beam.
func prunedPaths(l *Lattice, opts DeterminizeOptions) ([]Path, error) {
	comp, err := completionCosts(l)
	if err != nil {
		return nil, err
	}

	h := &hypothesisHeap{{state: l.Start, priority: comp[l.Start]}}
	heap.Init(h)

	maxLive := int(opts.HashRatio * float64(len(l.Arcs)+1) * 64)
	if maxLive < 256 {
		maxLive = 256
	}
	limit := expansionLimit(l, maxLive)

	best := math.Inf(1)
	var paths []Path
	rank := make(map[string]int)

	for pops := 0; h.Len() > 0; pops++ {
		if pops > limit {
			return nil, fmt.Errorf("determinize: expansion limit exceeded")
		}
		hyp := heap.Pop(h).(hypothesis)

		if hyp.priority > best+opts.Beam {
			// The frontier is ordered by the completion bound, nothing
			// that can still finish inside the beam remains.
			break
		}

		if final, ok := l.Final[hyp.state]; ok {
			total := hyp.weight.add(final)
			if total.Cost() <= best+opts.Beam {
				key := symbolKey(hyp.symbols)
				if i, ok := rank[key]; ok {
					if total.Cost() < paths[i].Cost() {
						paths[i].Weight = total
					}
				} else {
					rank[key] = len(paths)
					paths = append(paths, Path{Symbols: hyp.symbols, Weight: total})
				}
				if total.Cost() < best {
					best = total.Cost()
				}
			}
		}

		for _, arc := range l.Arcs[hyp.state] {
			next := hyp.weight.add(arc.Weight)
			bound := next.Cost() + comp[arc.Next]
			if bound > best+opts.Beam {
				continue
			}
			symbols := make([]int, len(hyp.symbols), len(hyp.symbols)+1)
			copy(symbols, hyp.symbols)
			symbols = append(symbols, arc.Symbol)
			heap.Push(h, hypothesis{state: arc.Next, priority: bound, weight: next, symbols: symbols})
		}

		if pops%opts.PruneInterval == opts.PruneInterval-1 {
			pruneFrontier(h, best, opts, maxLive)
		}
	}

	// The beam is anchored at the final best cost, re-filter entries that
	// were admitted against an earlier, looser bound.
	kept := paths[:0]
	for _, p := range paths {
		if p.Cost() <= best+opts.Beam {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Cost() < kept[j].Cost() })
	return kept, nil
}

func pruneFrontier(h *hypothesisHeap, best float64, opts DeterminizeOptions, maxLive int) {
	cutoff := best + opts.Beam*(1.0-opts.PruneScale)
	if math.IsInf(best, 1) {
		cutoff = math.Inf(1)
	}

	kept := (*h)[:0]
	for _, hyp := range *h {
		if hyp.priority <= cutoff {
			kept = append(kept, hyp)
		}
	}
	*h = kept
	heap.Init(h)

	for h.Len() > maxLive {
		// Drop the worst survivors until the live set fits.
		sort.Slice(*h, func(i, j int) bool { return (*h)[i].priority < (*h)[j].priority })
		*h = (*h)[:maxLive]
		heap.Init(h)
	}
}

// buildPrefixTree assembles a deterministic lattice from symbol sequences.
// Shared prefixes share states; each path's full weight sits on its final
// state so arc weights stay zero and ranking is unchanged.
func buildPrefixTree(paths []Path) *Lattice {
	l := NewLattice(1)
	type edge struct {
		state  int
		symbol int
	}
	next := make(map[edge]int)

	for _, p := range paths {
		state := 0
		for _, sym := range p.Symbols {
			e := edge{state: state, symbol: sym}
			to, ok := next[e]
			if !ok {
				to = l.NumStates()
				l.Arcs = append(l.Arcs, nil)
				l.AddArc(state, Arc{Symbol: sym, Next: to})
				next[e] = to
			}
			state = to
		}
		if _, ok := l.Final[state]; !ok {
			l.SetFinal(state, p.Weight)
		}
	}
	return l
}
