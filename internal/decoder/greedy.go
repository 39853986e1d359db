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
	"time"
)

// segment is a run of frames assigned the same output class. alt tracks the
// runner-up hypothesis for the run so the result graph carries alternatives.
type segment struct {
	class    int
	frames   int
	cost     float64
	altClass int
	altCost  float64
}

// GreedyEngine is the built-in reference engine: per frame it takes the
// highest scoring transition, collapses consecutive repeats into segments and
// drops silence classes from the emitted path. It keeps the binary and the
// end-to-end path exercisable without a native search engine; Engine remains
// the swap point.
type GreedyEngine struct {
	tm            TransitionModel
	silence       map[int]bool
	acousticScale float64

	framesDecoded int
	frameClasses  []int
	segments      []segment
	finalized     bool
}

// NewGreedyEngine returns a fresh engine. Silence classes are excluded from
// the emitted path but still scored.
func NewGreedyEngine(tm TransitionModel, silence map[int]bool, acousticScale float64) *GreedyEngine {
	if silence == nil {
		silence = map[int]bool{}
	}
	return &GreedyEngine{tm: tm, silence: silence, acousticScale: acousticScale}
}

func (e *GreedyEngine) Advance(s Scorer) error {
	if e.finalized {
		return fmt.Errorf("greedy engine: advance after finalize")
	}
	classes := s.NumClasses()
	if classes <= 0 {
		return fmt.Errorf("greedy engine: scorer has no classes")
	}

	for frame := e.framesDecoded; frame < s.FramesReady(); frame++ {
		best, second := 0, -1
		bestScore := s.Likelihood(frame, 0)
		secondScore := float32(0)
		for c := 1; c < classes; c++ {
			score := s.Likelihood(frame, c)
			switch {
			case score > bestScore:
				second, secondScore = best, bestScore
				best, bestScore = c, score
			case second < 0 || score > secondScore:
				second, secondScore = c, score
			}
		}

		class, ok := e.tm.ClassFor(best)
		if !ok {
			return fmt.Errorf("greedy engine: transition %d has no output class", best)
		}
		altClass := class
		altCost := -float64(bestScore) * e.acousticScale
		if second >= 0 {
			if mapped, ok := e.tm.ClassFor(second); ok {
				altClass = mapped
				altCost = -float64(secondScore) * e.acousticScale
			}
		}

		e.ingestFrame(class, -float64(bestScore)*e.acousticScale, altClass, altCost)
		e.framesDecoded++
	}
	return nil
}

func (e *GreedyEngine) ingestFrame(class int, cost float64, altClass int, altCost float64) {
	e.frameClasses = append(e.frameClasses, class)
	if n := len(e.segments); n > 0 && e.segments[n-1].class == class {
		seg := &e.segments[n-1]
		seg.frames++
		seg.cost += cost
		seg.altCost += altCost
		return
	}
	e.segments = append(e.segments, segment{
		class:    class,
		frames:   1,
		cost:     cost,
		altClass: altClass,
		altCost:  altCost,
	})
}

func (e *GreedyEngine) FramesDecoded() int {
	return e.framesDecoded
}

func (e *GreedyEngine) BestPath() []int {
	path := make([]int, 0, len(e.segments))
	for _, seg := range e.segments {
		if e.silence[seg.class] {
			continue
		}
		path = append(path, seg.class)
	}
	return path
}

func (e *GreedyEngine) EndpointDetected(policy EndpointPolicy) bool {
	if e.framesDecoded == 0 || policy.FrameShift <= 0 || policy.MinTrailingSilence <= 0 {
		return false
	}
	trailing := 0
	for i := len(e.frameClasses) - 1; i >= 0; i-- {
		if !policy.SilenceClasses[e.frameClasses[i]] {
			break
		}
		trailing++
	}
	return time.Duration(trailing)*policy.FrameShift >= policy.MinTrailingSilence
}

func (e *GreedyEngine) Finalize() {
	e.finalized = true
}

// ResultGraph builds a chain over the non-silence segments, with one
// alternative arc per segment taken from the runner-up class. Silence segment
// costs are folded into the final weight so every decoded frame contributes
// to the path cost.
func (e *GreedyEngine) ResultGraph(final bool) (*Lattice, error) {
	if e.framesDecoded == 0 {
		return nil, fmt.Errorf("greedy engine: no frames decoded")
	}

	var emitted []segment
	silenceCost := 0.0
	for _, seg := range e.segments {
		if e.silence[seg.class] {
			silenceCost += seg.cost
			continue
		}
		emitted = append(emitted, seg)
	}

	l := NewLattice(len(emitted) + 1)
	for i, seg := range emitted {
		l.AddArc(i, Arc{Symbol: seg.class, Weight: Weight{Acoustic: seg.cost}, Next: i + 1})
		if seg.altClass != seg.class && !e.silence[seg.altClass] {
			l.AddArc(i, Arc{Symbol: seg.altClass, Weight: Weight{Acoustic: seg.altCost}, Next: i + 1})
		}
	}
	l.SetFinal(len(emitted), Weight{Acoustic: silenceCost})
	return l, nil
}
