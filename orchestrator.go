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

package edgegrid

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/edgegrid-io/edgegrid/blockset"
	"github.com/edgegrid-io/edgegrid/ioalign"
	"github.com/edgegrid-io/edgegrid/linearize"
	"github.com/edgegrid-io/edgegrid/meta"
	"github.com/edgegrid-io/edgegrid/partition"
	"github.com/edgegrid-io/edgegrid/queue"
	"github.com/edgegrid-io/edgegrid/reader"
	"github.com/edgegrid-io/edgegrid/shuffle"
)

// IOSize is the target chunk size for sequential reads and shuffle
// scratch. It is not itself a multiple of every supported edge_unit
// (12 does not divide 8<<20), so Run derives the actual per-run chunk
// size by rounding IOSize down to the nearest multiple of edgeUnit
// before using it anywhere a chunk gets split into edge records.
const IOSize = 8 << 20 // 8 MiB

// partitionAlign rounds chunk sizes up to this vertex-id multiple, so
// that partition boundaries can land on disk-page-friendly vertex
// ranges in a downstream mmap-based consumer. Left at 1 (disabled) by
// default since rounding only pays off once a graph's chunk size
// already exceeds the alignment; a deployment working with a graph
// large enough for page alignment to matter can pass a larger value
// through partition.New directly.
const partitionAlign = 1

// Params is the fully-resolved set of parameters for one shuffle run.
type Params struct {
	Input      string
	Output     string
	Vertices   uint64
	Partitions int
	EdgeType   EdgeType
	Workers    int
}

// Run executes one complete shuffle: a chunk reader feeds a bounded
// queue drained by a pool of shuffle workers that scatter edges into
// per-block files, which are then flushed, linearized into column-
// and row-major views, and described by a meta file. It recreates the
// output directory from scratch, so a failed or partial prior run is
// silently discarded.
func Run(p Params) error {
	runID := uuid.New()
	logger := log.New(os.Stderr, fmt.Sprintf("[edgegrid %s] ", runID.String()[:8]), log.LstdFlags)

	edgeUnit, err := EdgeUnit(p.EdgeType)
	if err != nil {
		return err
	}
	info, err := os.Stat(p.Input)
	if err != nil {
		return fmt.Errorf("edgegrid: statting input: %w", err)
	}
	if info.Size()%int64(edgeUnit) != 0 {
		return &FormatError{Msg: fmt.Sprintf("input size %d is not a multiple of edge_unit %d", info.Size(), edgeUnit)}
	}
	edges := EdgeId(info.Size() / int64(edgeUnit))

	// ioSize must be a multiple of edgeUnit: the reader fills every
	// non-final chunk to exactly this size, and the shuffle worker's
	// count/scatter passes walk it in edgeUnit strides, so a
	// misaligned chunk would split a trailing edge record across two
	// chunks.
	ioSize := (IOSize / edgeUnit) * edgeUnit
	if ioSize == 0 {
		ioSize = edgeUnit
	}

	if p.Partitions < 1 {
		p.Partitions = 1
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	logger.Printf("vertices=%d edges=%d partitions=%d workers=%d edge_type=%d", p.Vertices, edges, p.Partitions, p.Workers, p.EdgeType)

	if err := os.RemoveAll(p.Output); err != nil {
		return fmt.Errorf("edgegrid: removing stale output dir: %w", err)
	}
	if err := os.MkdirAll(p.Output, 0755); err != nil {
		return fmt.Errorf("edgegrid: creating output dir: %w", err)
	}

	part := partition.New(p.Vertices, p.Partitions, partitionAlign)

	blocks, err := blockset.Open(p.Output, p.Partitions, edgeUnit)
	if err != nil {
		return err
	}

	in, err := os.Open(p.Input)
	if err != nil {
		return fmt.Errorf("edgegrid: opening input: %w", err)
	}
	defer in.Close()

	pool, err := ioalign.New(2*p.Workers, ioSize)
	if err != nil {
		return err
	}
	defer pool.Close()

	q := queue.New(p.Workers)
	rd := reader.New(in, pool, q, ioSize)

	workers := make([]*shuffle.Worker, p.Workers)
	for i := range workers {
		w, err := shuffle.New(p.EdgeType, edgeUnit, part, blocks, pool, q, rd.Release, ioSize)
		if err != nil {
			return err
		}
		workers[i] = w
	}

	var wg sync.WaitGroup
	workerErrs := make([]error, p.Workers)
	wg.Add(p.Workers)
	for i, w := range workers {
		i, w := i, w
		go func() {
			defer wg.Done()
			_, workerErrs[i] = w.Run()
		}()
	}

	readBytes, readErr := rd.Run()
	q.Close()
	wg.Wait()
	for _, w := range workers {
		w.Close()
	}
	if readErr != nil {
		return readErr
	}
	for _, werr := range workerErrs {
		if werr != nil {
			return werr
		}
	}
	if readBytes != int64(edges)*int64(edgeUnit) {
		return &InvariantError{Msg: "bytes read does not match expected edge stream size"}
	}

	logger.Printf("shuffle complete, %d bytes", readBytes)

	if err := blocks.FlushRemainders(); err != nil {
		return err
	}
	if err := blocks.Close(); err != nil {
		return fmt.Errorf("edgegrid: closing block files: %w", err)
	}

	if err := linearize.Run(p.Output, p.Partitions, linearize.ColumnMajor, IOSize); err != nil {
		return err
	}
	logger.Printf("column-oriented grid generated")
	if err := linearize.Run(p.Output, p.Partitions, linearize.RowMajor, IOSize); err != nil {
		return err
	}
	logger.Printf("row-oriented grid generated")

	if err := meta.Write(p.Output, meta.Descriptor{
		EdgeType:   p.EdgeType,
		Vertices:   p.Vertices,
		Edges:      edges,
		Partitions: p.Partitions,
	}); err != nil {
		return err
	}
	logger.Printf("done")
	return nil
}
