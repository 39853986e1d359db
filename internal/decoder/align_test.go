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
	"reflect"
	"testing"
)

func TestWordBoundaryAligner(t *testing.T) {
	path := writeTempFile(t, "# boundaries\n1 nonword\n2 begin\n3 internal\n4 end\n5 singleton\n")

	a, err := LoadWordBoundaryAligner(path)
	if err != nil {
		t.Fatalf("LoadWordBoundaryAligner() error = %v", err)
	}

	aligned, err := a.Align([]int{1, 2, 3, 4, 1, 5})
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	if want := []int{2, 3, 4, 5}; !reflect.DeepEqual(aligned, want) {
		t.Errorf("Align() = %v, want %v", aligned, want)
	}
}

func TestWordBoundaryAligner_UnknownSymbol(t *testing.T) {
	path := writeTempFile(t, "1 begin\n")

	a, err := LoadWordBoundaryAligner(path)
	if err != nil {
		t.Fatalf("LoadWordBoundaryAligner() error = %v", err)
	}
	if _, err := a.Align([]int{1, 9}); err == nil {
		t.Error("Align() expected error for symbol missing from the table")
	}
}

func TestLoadWordBoundaryAligner_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: "# nothing\n"},
		{name: "bad symbol", content: "x begin\n"},
		{name: "unknown type", content: "1 middleish\n"},
		{name: "malformed line", content: "1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, tt.content)
			if _, err := LoadWordBoundaryAligner(path); err == nil {
				t.Error("LoadWordBoundaryAligner() expected error")
			}
		})
	}
}

func TestParseClassSet(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    map[int]bool
		wantErr bool
	}{
		{name: "single", spec: "1", want: map[int]bool{1: true}},
		{name: "multiple", spec: "1:2:15", want: map[int]bool{1: true, 2: true, 15: true}},
		{name: "empty", spec: "", want: map[int]bool{}},
		{name: "spaces", spec: " 1 : 2 ", want: map[int]bool{1: true, 2: true}},
		{name: "non numeric", spec: "1:two", wantErr: true},
		{name: "negative", spec: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClassSet(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClassSet(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseClassSet(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestNewFactory(t *testing.T) {
	tm := identityModel(t, 3)
	opts := EngineOptions{AcousticScale: 0.1, SilenceClasses: map[int]bool{0: true}}

	factory, err := NewFactory("greedy", tm, opts)
	if err != nil {
		t.Fatalf("NewFactory() error = %v", err)
	}
	if factory() == factory() {
		t.Error("factory must produce a fresh engine per call")
	}

	if _, err := NewFactory("", tm, opts); err != nil {
		t.Errorf("NewFactory(\"\") error = %v, want default engine", err)
	}
	if _, err := NewFactory("viterbi-9000", tm, opts); err == nil {
		t.Error("NewFactory() expected error for unknown engine")
	}
	if _, err := NewFactory("greedy", nil, opts); err == nil {
		t.Error("NewFactory() expected error for nil transition model")
	}
}
