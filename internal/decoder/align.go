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
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// BoundaryType classifies a symbol's position inside a word.
type BoundaryType int

const (
	BoundaryBegin BoundaryType = iota
	BoundaryEnd
	BoundaryInternal
	BoundarySingleton
	BoundaryNonword
)

var boundaryNames = map[string]BoundaryType{
	"begin":     BoundaryBegin,
	"end":       BoundaryEnd,
	"internal":  BoundaryInternal,
	"singleton": BoundarySingleton,
	"nonword":   BoundaryNonword,
}

// Aligner post-processes a symbol sequence. Alignment failure is recoverable:
// the caller falls back to the unaligned sequence.
type Aligner interface {
	Align(symbols []int) ([]int, error)
}

// WordBoundaryAligner drops nonword symbols from a sequence using a
// symbol-to-boundary table, and rejects sequences containing symbols the
// table does not know.
type WordBoundaryAligner struct {
	table map[int]BoundaryType
}

// LoadWordBoundaryAligner reads a boundary table with one "symbol type" pair
// per line, where type is one of begin, end, internal, singleton, nonword.
// Lines starting with '#' are ignored.
func LoadWordBoundaryAligner(path string) (*WordBoundaryAligner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("word boundary table %s: %w", path, err)
	}
	defer f.Close()

	table := make(map[int]BoundaryType)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("word boundary table %s:%d: want \"symbol type\", got %q", path, line, text)
		}
		symbol, err := strconv.Atoi(fields[0])
		if err != nil || symbol < 0 {
			return nil, fmt.Errorf("word boundary table %s:%d: bad symbol %q", path, line, fields[0])
		}
		bt, ok := boundaryNames[fields[1]]
		if !ok {
			return nil, fmt.Errorf("word boundary table %s:%d: unknown boundary type %q", path, line, fields[1])
		}
		table[symbol] = bt
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("word boundary table %s: %w", path, err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("word boundary table %s: empty table", path)
	}
	return &WordBoundaryAligner{table: table}, nil
}

// Align strips nonword symbols. A symbol missing from the table fails the
// whole sequence.
func (a *WordBoundaryAligner) Align(symbols []int) ([]int, error) {
	aligned := make([]int, 0, len(symbols))
	for _, sym := range symbols {
		bt, ok := a.table[sym]
		if !ok {
			return nil, fmt.Errorf("align: symbol %d not in word boundary table", sym)
		}
		if bt == BoundaryNonword {
			continue
		}
		aligned = append(aligned, sym)
	}
	return aligned, nil
}
