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

// Package reader implements the sequential chunk reader: it
// reads the input file in page-aligned IOSIZE buffers drawn from a
// rotating pool of 2*workers buffers and hands each filled buffer to
// the shuffle workers through a bounded queue.
package reader

import (
	"fmt"
	"io"

	"github.com/edgegrid-io/edgegrid/ioalign"
	"github.com/edgegrid-io/edgegrid/queue"
)

// Reader sequentially reads src in Pool-sized chunks and pushes
// (handle, byte count) pairs onto q until EOF.
type Reader struct {
	src    io.Reader
	pool   *ioalign.Pool
	q      *queue.Queue
	free   chan int
	ioSize int
}

// New builds a Reader over src that draws buffers from pool (sized
// 2*workers buffers of ioSize bytes each) and publishes filled ones
// onto q.
func New(src io.Reader, pool *ioalign.Pool, q *queue.Queue, ioSize int) *Reader {
	free := make(chan int, pool.Len())
	for h := 0; h < pool.Len(); h++ {
		free <- h
	}
	return &Reader{src: src, pool: pool, q: q, free: free, ioSize: ioSize}
}

// Release returns a buffer handle to the free pool once a worker has
// finished draining it, the release half of a lend/return protocol
// that tracks buffer ownership without a polled flag per buffer.
func (r *Reader) Release(handle int) { r.free <- handle }

// Run reads src to EOF, pushing one Chunk per filled buffer onto the
// queue, and returns the total number of bytes read. Because
// Queue.Push blocks while full (capacity == worker count) and the
// buffer pool holds 2*workers buffers, a free buffer is always
// eventually available: at most `workers` buffers are in flight on
// the queue at once, leaving the other half free or draining.
//
// Any read error is fatal and stops the run. If a shuffle worker
// aborts the queue (because it failed downstream), Push returns false
// and Run stops and returns cleanly: the real failure is reported by
// the worker, not invented here.
func (r *Reader) Run() (int64, error) {
	var total int64
	for {
		handle := <-r.free
		buf := r.pool.Buffer(handle)[:r.ioSize]
		n, err := io.ReadFull(r.src, buf)
		if err == io.ErrUnexpectedEOF {
			err = nil
		}
		if err == io.EOF {
			r.free <- handle
			break
		}
		if err != nil {
			return total, fmt.Errorf("reader: reading input: %w", err)
		}
		if n == 0 {
			r.free <- handle
			break
		}
		total += int64(n)
		if !r.q.Push(queue.Chunk{Handle: handle, Bytes: n}) {
			r.free <- handle
			break
		}
	}
	return total, nil
}
