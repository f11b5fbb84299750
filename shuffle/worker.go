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

// Package shuffle implements the shuffle worker: per chunk, it
// counts edges per destination block, computes a prefix sum, scatters
// the chunk into a local scratch buffer ordered by block, then drains
// each block segment to the block file set.
package shuffle

import (
	"github.com/edgegrid-io/edgegrid"
	"github.com/edgegrid-io/edgegrid/blockset"
	"github.com/edgegrid-io/edgegrid/ioalign"
	"github.com/edgegrid-io/edgegrid/partition"
	"github.com/edgegrid-io/edgegrid/queue"
)

// Worker owns the two local P^2-length integer arrays and the
// page-aligned scratch buffer used to shuffle one chunk at a time. A
// Worker is not safe for concurrent use; the orchestrator runs one per
// goroutine.
type Worker struct {
	edgeType edgegrid.EdgeType
	edgeUnit int
	part     partition.Partitioner
	blocks   *blockset.Set
	pool     *ioalign.Pool
	q        *queue.Queue
	release  func(handle int)

	count  []int
	cursor []int
	scr    []byte
	scrMem *ioalign.Pool
}

// New builds a Worker for the given partition scheme and edge
// encoding, draining chunks popped from q (sourced from pool) into
// blocks. release is called with a chunk's buffer handle once the
// worker is done with it, handing it back to the reader. ioSize sizes
// the worker's own page-aligned scratch buffer, kept separate from the
// reader's buffer pool so concurrent workers never contend over it.
func New(edgeType edgegrid.EdgeType, edgeUnit int, part partition.Partitioner, blocks *blockset.Set, pool *ioalign.Pool, q *queue.Queue, release func(int), ioSize int) (*Worker, error) {
	scratchPool, err := ioalign.New(1, ioSize)
	if err != nil {
		return nil, err
	}
	p2 := part.Partitions() * part.Partitions()
	return &Worker{
		edgeType: edgeType,
		edgeUnit: edgeUnit,
		part:     part,
		blocks:   blocks,
		pool:     pool,
		q:        q,
		release:  release,
		count:    make([]int, p2),
		cursor:   make([]int, p2),
		scr:      scratchPool.Buffer(0),
		scrMem:   scratchPool,
	}, nil
}

// Close releases the worker's scratch buffer.
func (w *Worker) Close() error { return w.scrMem.Close() }

// Run pops chunks from the queue until it is closed and drained,
// shuffling each one in turn. It returns the total number of edges
// processed by this worker. If shuffling a chunk fails, Run aborts the
// queue before returning, so the reader and every other worker blocked
// on it unblock immediately instead of waiting on a consumer that has
// already stopped.
func (w *Worker) Run() (edgegrid.EdgeId, error) {
	var edges edgegrid.EdgeId
	for {
		c, ok := w.q.Pop()
		if !ok {
			return edges, nil
		}
		buf := w.pool.Buffer(c.Handle)[:c.Bytes]
		n, err := w.shuffleChunk(buf)
		w.release(c.Handle)
		if err != nil {
			w.q.Abort()
			return edges, err
		}
		edges += edgegrid.EdgeId(n)
	}
}

// shuffleChunk performs the count/prefix-sum/scatter/drain passes
// over one chunk buffer and returns the number of edges it contained.
func (w *Worker) shuffleChunk(buf []byte) (int, error) {
	p := w.part.Partitions()
	unit := w.edgeUnit
	nEdges := len(buf) / unit

	for i := range w.count {
		w.count[i] = 0
	}

	// 1. count pass
	for pos := 0; pos < len(buf); pos += unit {
		i, j := w.blockOf(buf[pos : pos+unit])
		w.count[i*p+j] += unit
	}

	// 2. exclusive prefix sum into cursor[]; count[] is reused in
	// place to hold the resulting segment end offsets.
	run := 0
	for ij := range w.count {
		w.cursor[ij] = run
		run += w.count[ij]
		w.count[ij] = run
	}
	if run != len(buf) {
		return 0, &edgegrid.InvariantError{Msg: "prefix-sum total does not match chunk size"}
	}

	// scratch is reused across chunks by the caller's pool slot model:
	// each worker gets its own scratch buffer sized IOSIZE.
	scratch := w.scratch(len(buf))

	// 3. scatter pass
	for pos := 0; pos < len(buf); pos += unit {
		rec := buf[pos : pos+unit]
		i, j := w.blockOf(rec)
		ij := i*p + j
		dst := w.cursor[ij]
		copy(scratch[dst:dst+unit], rec)
		w.cursor[ij] += unit
	}
	for ij := range w.cursor {
		if w.cursor[ij] != w.count[ij] {
			return 0, &edgegrid.InvariantError{Msg: "scatter cursor does not match segment end offset"}
		}
	}

	// 4. drain segments to block files / coalescing cells, in order.
	start := 0
	for ij := 0; ij < p*p; ij++ {
		end := w.count[ij]
		if end > start {
			i, j := ij/p, ij%p
			if err := w.blocks.Drain(i, j, scratch[start:end]); err != nil {
				return 0, err
			}
		}
		start = end
	}

	return nEdges, nil
}

func (w *Worker) blockOf(rec []byte) (int, int) {
	e := edgegrid.Decode(w.edgeType, rec)
	return w.part.Of(uint64(e.Src)), w.part.Of(uint64(e.Dst))
}

// scratch returns this worker's page-aligned scratch buffer truncated
// to n bytes; n never exceeds the IOSIZE the worker was built with,
// since chunks never exceed a reader buffer's size.
func (w *Worker) scratch(n int) []byte {
	return w.scr[:n]
}
