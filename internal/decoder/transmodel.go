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

// IdentityTransitionModel maps every transition id to itself. It backs setups
// where the likelihood classes are emitted directly.
type IdentityTransitionModel struct {
	classes int
}

// NewIdentityTransitionModel returns an identity model over classes outputs.
func NewIdentityTransitionModel(classes int) (*IdentityTransitionModel, error) {
	if classes <= 0 {
		return nil, fmt.Errorf("transition model: class count must be positive, got %d", classes)
	}
	return &IdentityTransitionModel{classes: classes}, nil
}

func (m *IdentityTransitionModel) ClassFor(transitionID int) (int, bool) {
	if transitionID < 0 || transitionID >= m.classes {
		return 0, false
	}
	return transitionID, true
}

func (m *IdentityTransitionModel) NumClasses() int {
	return m.classes
}

// TableTransitionModel maps transition ids to classes through an explicit
// table loaded from disk.
type TableTransitionModel struct {
	classes int
	table   map[int]int
}

// LoadTransitionModel reads a transition table. The file's first
// non-comment line is the output class count; each following line holds a
// "transition-id class" pair. Lines starting with '#' are ignored.
func LoadTransitionModel(path string) (*TableTransitionModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transition model %s: %w", path, err)
	}
	defer f.Close()

	m := &TableTransitionModel{table: make(map[int]int)}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if m.classes == 0 {
			classes, err := strconv.Atoi(text)
			if err != nil || classes <= 0 {
				return nil, fmt.Errorf("transition model %s:%d: bad class count %q", path, line, text)
			}
			m.classes = classes
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("transition model %s:%d: want \"id class\", got %q", path, line, text)
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil || id < 0 {
			return nil, fmt.Errorf("transition model %s:%d: bad transition id %q", path, line, fields[0])
		}
		class, err := strconv.Atoi(fields[1])
		if err != nil || class < 0 || class >= m.classes {
			return nil, fmt.Errorf("transition model %s:%d: class %q out of range [0,%d)", path, line, fields[1], m.classes)
		}
		if _, dup := m.table[id]; dup {
			return nil, fmt.Errorf("transition model %s:%d: duplicate transition id %d", path, line, id)
		}
		m.table[id] = class
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("transition model %s: %w", path, err)
	}
	if m.classes == 0 {
		return nil, fmt.Errorf("transition model %s: missing class count", path)
	}
	if len(m.table) == 0 {
		return nil, fmt.Errorf("transition model %s: no transitions", path)
	}
	return m, nil
}

func (m *TableTransitionModel) ClassFor(transitionID int) (int, bool) {
	class, ok := m.table[transitionID]
	return class, ok
}

func (m *TableTransitionModel) NumClasses() int {
	return m.classes
}
