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

// Package linearize implements the grid linearizer: after the
// shuffle completes, it concatenates the P^2 block files into a
// single column-major file and a single row-major file, each paired
// with a 64-bit offset index.
package linearize

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/edgegrid-io/edgegrid/blockset"
	"github.com/edgegrid-io/edgegrid/ioalign"
)

// Order selects the traversal order over the P x P block grid.
type Order int

const (
	// ColumnMajor walks j outer, i inner.
	ColumnMajor Order = iota
	// RowMajor walks i outer, j inner.
	RowMajor
)

func (o Order) names() (data, offsets string) {
	if o == ColumnMajor {
		return "column", "column_offset"
	}
	return "row", "row_offset"
}

// Run concatenates the p*p block files under dir into dir/<data> in
// the traversal order o, recording a 64-bit offset index of length
// p*p+1 into dir/<offsets>: entry k is the start byte of the k-th
// block in traversal order, and the final entry is the total size of
// the output file. It reuses one page-aligned buffer, sized ioSize,
// for every copy, and hints the OS that both the per-block reads and
// the output write are strictly sequential.
func Run(dir string, p int, o Order, ioSize int) error {
	dataName, offsetName := o.names()
	out, err := os.OpenFile(filepath.Join(dir, dataName), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("linearize: creating %s: %w", dataName, err)
	}
	defer out.Close()
	offsets, err := os.OpenFile(filepath.Join(dir, offsetName), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("linearize: creating %s: %w", offsetName, err)
	}
	defer offsets.Close()

	ioalign.AdviseSequential(int(out.Fd()))

	pool, err := ioalign.New(1, ioSize)
	if err != nil {
		return err
	}
	defer pool.Close()
	buf := pool.Buffer(0)

	var offsetBuf [8]byte
	var offset int64

	writeOffset := func(v int64) error {
		binary.LittleEndian.PutUint64(offsetBuf[:], uint64(v))
		_, err := offsets.Write(offsetBuf[:])
		return err
	}

	for _, i := range outerInner(p, o) {
		for _, j := range i {
			if err := writeOffset(offset); err != nil {
				return fmt.Errorf("linearize: writing %s: %w", offsetName, err)
			}
			n, err := copyBlock(out, dir, j.i, j.j, buf)
			if err != nil {
				return err
			}
			offset += n
		}
	}
	if err := writeOffset(offset); err != nil {
		return fmt.Errorf("linearize: writing %s: %w", offsetName, err)
	}
	return nil
}

type coord struct{ i, j int }

// outerInner returns, for each outer index, the ordered list of (i,
// j) coordinates to visit for its inner sweep, in the traversal order
// o. Column-major walks j outer / i inner; row-major walks i outer /
// j inner.
func outerInner(p int, o Order) [][]coord {
	grid := make([][]coord, p)
	for outer := 0; outer < p; outer++ {
		row := make([]coord, p)
		for inner := 0; inner < p; inner++ {
			if o == ColumnMajor {
				row[inner] = coord{i: inner, j: outer}
			} else {
				row[inner] = coord{i: outer, j: inner}
			}
		}
		grid[outer] = row
	}
	return grid
}

func copyBlock(dst *os.File, dir string, i, j int, buf []byte) (int64, error) {
	path := blockset.Path(dir, i, j)
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("linearize: opening %s: %w", path, err)
	}
	defer f.Close()
	ioalign.AdviseSequential(int(f.Fd()))

	var total int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, fmt.Errorf("linearize: writing: %w", werr)
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("linearize: reading %s: %w", path, err)
		}
	}
}
