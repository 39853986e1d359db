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
	"bytes"
	"testing"
)

func TestWritePartial(t *testing.T) {
	tests := []struct {
		name    string
		symbols []int
		want    string
	}{
		{name: "symbols", symbols: []int{1, 2, 3}, want: "-1 1 2 3 \n"},
		{name: "single symbol", symbols: []int{42}, want: "-1 42 \n"},
		{name: "empty", symbols: nil, want: "-1 \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rw := NewResultWriter(&buf)

			if err := rw.WritePartial(tt.symbols); err != nil {
				t.Fatalf("WritePartial() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("WritePartial() wrote %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteFinal(t *testing.T) {
	tests := []struct {
		name       string
		candidates [][]int
		want       string
	}{
		{
			name:       "two candidates on one line",
			candidates: [][]int{{1, 2}, {1, 3}},
			want:       "-2 -1 1 2 -1 1 3 \n",
		},
		{
			name:       "single candidate",
			candidates: [][]int{{7}},
			want:       "-2 -1 7 \n",
		},
		{
			name:       "no candidates",
			candidates: nil,
			want:       "-2 \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rw := NewResultWriter(&buf)

			if err := rw.WriteFinal(tt.candidates); err != nil {
				t.Fatalf("WriteFinal() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("WriteFinal() wrote %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteTermination(t *testing.T) {
	var buf bytes.Buffer
	rw := NewResultWriter(&buf)

	if err := rw.WriteTermination(); err != nil {
		t.Fatalf("WriteTermination() error = %v", err)
	}
	if got, want := buf.String(), "-3 \n"; got != want {
		t.Errorf("WriteTermination() wrote %q, want %q", got, want)
	}
}

func TestResultWriter_FlushesEachMessage(t *testing.T) {
	var buf bytes.Buffer
	rw := NewResultWriter(&buf)

	if err := rw.WritePartial([]int{1}); err != nil {
		t.Fatalf("WritePartial() error = %v", err)
	}
	after := buf.Len()
	if after == 0 {
		t.Error("partial result not flushed to the underlying writer")
	}

	if err := rw.WriteFinal([][]int{{1}}); err != nil {
		t.Fatalf("WriteFinal() error = %v", err)
	}
	if buf.Len() == after {
		t.Error("final result not flushed to the underlying writer")
	}
}
