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

// Package ioalign provides a small rotating pool of page-aligned
// buffers, shared by the chunk reader and the grid linearizer, plus
// an OS hint for strictly sequential I/O.
package ioalign

import "fmt"

// Pool owns n page-aligned buffers of size bufSize, addressed by
// integer handle rather than by a polled per-buffer occupied flag: a
// handle is "free" exactly when nothing holds a reference to it.
type Pool struct {
	bufs []*[]byte
}

// New allocates n page-aligned buffers of bufSize bytes each.
func New(n, bufSize int) (*Pool, error) {
	p := &Pool{bufs: make([]*[]byte, n)}
	for i := range p.bufs {
		b, err := allocAligned(bufSize)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("ioalign: allocating buffer %d: %w", i, err)
		}
		p.bufs[i] = &b
	}
	return p, nil
}

// Len returns the number of buffers in the pool.
func (p *Pool) Len() int { return len(p.bufs) }

// Buffer returns the full-capacity buffer for handle h.
func (p *Pool) Buffer(h int) []byte { return *p.bufs[h] }

// Close releases the backing memory for every buffer in the pool.
func (p *Pool) Close() error {
	var first error
	for i, b := range p.bufs {
		if b == nil {
			continue
		}
		if err := freeAligned(*b); err != nil && first == nil {
			first = fmt.Errorf("ioalign: freeing buffer %d: %w", i, err)
		}
		p.bufs[i] = nil
	}
	return first
}

// AdviseSequential hints the OS that fd will be accessed sequentially
// from here on, so it can read further ahead and drop pages behind.
func AdviseSequential(fd int) { adviseSequential(fd) }
