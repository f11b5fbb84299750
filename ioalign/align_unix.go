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

//go:build linux || darwin

package ioalign

import "golang.org/x/sys/unix"

// allocAligned returns a page-aligned, zeroed buffer of size n bytes
// via an anonymous mmap. mmap'd regions are always page-aligned, so
// this needs no manual rounding the way a heap allocator would.
func allocAligned(n int) ([]byte, error) {
	return unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func freeAligned(buf []byte) error {
	return unix.Munmap(buf)
}

// adviseSequential hints the OS that fd will be read or written
// sequentially from here on, which suits the linearizer's
// strictly-sequential concatenation pass.
func adviseSequential(fd int) {
	unix.Fadvise(fd, 0, 0, unix.FADV_SEQUENTIAL)
}
