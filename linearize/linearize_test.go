// Copyright (C) 2024 Edgegrid Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package linearize

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/edgegrid-io/edgegrid/blockset"
)

// writeBlocks populates every block-i-j file under dir with a distinct
// one-byte-per-record marker: block (i,j) is filled with n[i][j]
// copies of the byte value i*p+j, so the test can check both content
// and traversal order without a real shuffle.
func writeBlocks(t *testing.T, dir string, p int, n [][]int) {
	t.Helper()
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			data := bytes.Repeat([]byte{byte(i*p + j)}, n[i][j])
			if err := os.WriteFile(blockset.Path(dir, i, j), data, 0644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
		}
	}
}

func readOffsets(t *testing.T, path string) []int64 {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data)%8 != 0 {
		t.Fatalf("%s has %d bytes, not a multiple of 8", path, len(data))
	}
	out := make([]int64, len(data)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out
}

func TestRunColumnMajorOrdersByColumnThenRow(t *testing.T) {
	dir := t.TempDir()
	const p = 2
	sizes := [][]int{{1, 2}, {3, 4}}
	writeBlocks(t, dir, p, sizes)

	if err := Run(dir, p, ColumnMajor, 4096); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "column"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// column-major: (0,0) then (1,0) then (0,1) then (1,1).
	// block(0,0)=1 byte of 0, block(1,0)=3 bytes of 2, block(0,1)=2 bytes of 1, block(1,1)=4 bytes of 3
	want := append([]byte{}, bytes.Repeat([]byte{0}, 1)...)
	want = append(want, bytes.Repeat([]byte{2}, 3)...)
	want = append(want, bytes.Repeat([]byte{1}, 2)...)
	want = append(want, bytes.Repeat([]byte{3}, 4)...)
	if !bytes.Equal(data, want) {
		t.Errorf("column data = %v, want %v", data, want)
	}

	offsets := readOffsets(t, filepath.Join(dir, "column_offset"))
	wantOffsets := []int64{0, 1, 4, 6, 10}
	if len(offsets) != len(wantOffsets) {
		t.Fatalf("got %d offsets, want %d", len(offsets), len(wantOffsets))
	}
	for i := range offsets {
		if offsets[i] != wantOffsets[i] {
			t.Errorf("offset[%d] = %d, want %d", i, offsets[i], wantOffsets[i])
		}
	}
	if offsets[len(offsets)-1] != int64(len(data)) {
		t.Errorf("final offset %d != file size %d", offsets[len(offsets)-1], len(data))
	}
}

func TestRunRowMajorOrdersByRowThenColumn(t *testing.T) {
	dir := t.TempDir()
	const p = 2
	sizes := [][]int{{1, 2}, {3, 4}}
	writeBlocks(t, dir, p, sizes)

	if err := Run(dir, p, RowMajor, 4096); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "row"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// row-major: (0,0) then (0,1) then (1,0) then (1,1).
	var want []byte
	want = append(want, bytes.Repeat([]byte{0}, 1)...)
	want = append(want, bytes.Repeat([]byte{1}, 2)...)
	want = append(want, bytes.Repeat([]byte{2}, 3)...)
	want = append(want, bytes.Repeat([]byte{3}, 4)...)
	if !bytes.Equal(data, want) {
		t.Errorf("row data = %v, want %v", data, want)
	}

	offsets := readOffsets(t, filepath.Join(dir, "row_offset"))
	if len(offsets) != p*p+1 {
		t.Fatalf("got %d offsets, want %d", len(offsets), p*p+1)
	}
}

func TestRunEmptyBlocksProduceZeroLengthSegments(t *testing.T) {
	dir := t.TempDir()
	const p = 2
	sizes := [][]int{{0, 0}, {0, 5}}
	writeBlocks(t, dir, p, sizes)

	if err := Run(dir, p, ColumnMajor, 4096); err != nil {
		t.Fatalf("Run: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "column"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("column file size = %d, want 5", info.Size())
	}

	offsets := readOffsets(t, filepath.Join(dir, "column_offset"))
	nonDecreasing := true
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			nonDecreasing = false
		}
	}
	if !nonDecreasing {
		t.Errorf("offsets not monotone non-decreasing: %v", offsets)
	}
}
