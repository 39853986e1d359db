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

package transport

import (
	"bufio"
	"fmt"
	"io"
)

// Result message prefixes, mirroring the input flags.
const (
	PrefixPartial   = -1
	PrefixFinal     = -2
	PrefixTerminate = -3
)

// ResultWriter serializes recognition results onto the output stream. Each
// logical message is one newline-terminated line, flushed immediately.
type ResultWriter struct {
	w *bufio.Writer
}

// NewResultWriter wraps w for result serialization.
func NewResultWriter(w io.Writer) *ResultWriter {
	return &ResultWriter{w: bufio.NewWriter(w)}
}

// WritePartial emits the current 1-best symbol sequence: "-1 <ids...>".
func (rw *ResultWriter) WritePartial(symbols []int) error {
	if err := rw.writeSequence(symbols); err != nil {
		return err
	}
	return rw.endLine()
}

// WriteFinal emits a ranked candidate list: "-2" followed by one partial-form
// sequence per candidate, all on one line. A nil or empty list yields the
// bare empty-final marker.
func (rw *ResultWriter) WriteFinal(candidates [][]int) error {
	if _, err := fmt.Fprintf(rw.w, "%d ", PrefixFinal); err != nil {
		return fmt.Errorf("transport: write final prefix: %w", err)
	}
	for _, symbols := range candidates {
		if err := rw.writeSequence(symbols); err != nil {
			return err
		}
	}
	return rw.endLine()
}

// WriteTermination emits the termination acknowledgement: "-3".
func (rw *ResultWriter) WriteTermination() error {
	if _, err := fmt.Fprintf(rw.w, "%d ", PrefixTerminate); err != nil {
		return fmt.Errorf("transport: write termination: %w", err)
	}
	return rw.endLine()
}

func (rw *ResultWriter) writeSequence(symbols []int) error {
	if _, err := fmt.Fprintf(rw.w, "%d ", PrefixPartial); err != nil {
		return fmt.Errorf("transport: write partial prefix: %w", err)
	}
	for _, s := range symbols {
		if _, err := fmt.Fprintf(rw.w, "%d ", s); err != nil {
			return fmt.Errorf("transport: write symbol: %w", err)
		}
	}
	return nil
}

func (rw *ResultWriter) endLine() error {
	if err := rw.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("transport: write newline: %w", err)
	}
	if err := rw.w.Flush(); err != nil {
		return fmt.Errorf("transport: flush: %w", err)
	}
	return nil
}
