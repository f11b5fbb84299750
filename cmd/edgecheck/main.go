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

// Command edgecheck is a read-only verifier for an edgegrid output
// directory: it checks block membership, size conservation, and
// linearized-view consistency against the files already on disk,
// without redoing the shuffle.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/edgegrid-io/edgegrid"
	"github.com/edgegrid-io/edgegrid/blockset"
	"github.com/edgegrid-io/edgegrid/checksum"
	"github.com/edgegrid-io/edgegrid/meta"
	"github.com/edgegrid-io/edgegrid/partition"
)

var (
	dashDir    string
	dashInput  string
	dashBundle string
	dashV      bool
)

func init() {
	flag.StringVar(&dashDir, "dir", "", "edgegrid output directory to verify")
	flag.StringVar(&dashInput, "input", "", "original input edge list, to additionally check multiset equality")
	flag.StringVar(&dashBundle, "bundle", "", "write a compressed diagnostic bundle (meta, file digests, block fingerprints) to this path")
	flag.BoolVar(&dashV, "v", false, "verbose (accepted; has no effect on output)")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
	os.Exit(1)
}

type errorWriter struct {
	any  bool
	msgs []string
}

func (e *errorWriter) Write(p []byte) (int, error) {
	e.any = true
	e.msgs = append(e.msgs, strings.TrimRight(string(p), "\n"))
	return os.Stderr.Write(p)
}

func (e *errorWriter) Errorf(f string, args ...interface{}) {
	fmt.Fprintf(e, f+"\n", args...)
}

func main() {
	flag.Parse()
	if dashDir == "" {
		flag.PrintDefaults()
		exitf("usage: -dir is required")
	}

	e := &errorWriter{}
	report := check(dashDir, dashInput, e)
	if dashBundle != "" {
		if err := writeBundle(dashBundle, report); err != nil {
			exitf("edgecheck: writing bundle: %s", err)
		}
	}
	if e.any {
		os.Exit(1)
	}
	fmt.Println("ok")
}

// bundle is the diagnostic payload written by -bundle.
type bundle struct {
	Meta        meta.Descriptor
	Fingerprint map[string]uint64
	Digests     map[string][32]byte
}

func check(dir, inputPath string, e *errorWriter) bundle {
	var rep bundle
	rep.Fingerprint = map[string]uint64{}
	rep.Digests = map[string][32]byte{}

	d, err := meta.Read(dir)
	if err != nil {
		e.Errorf("reading meta: %s", err)
		return rep
	}
	rep.Meta = d
	edgeUnit, err := edgegrid.EdgeUnit(d.EdgeType)
	if err != nil {
		e.Errorf("meta: %s", err)
		return rep
	}

	part := partition.New(d.Vertices, d.Partitions, 1)

	var conservedSize int64
	var allBlocksFingerprint uint64
	for i := 0; i < d.Partitions; i++ {
		for j := 0; j < d.Partitions; j++ {
			path := blockset.Path(dir, i, j)
			data, err := os.ReadFile(path)
			if err != nil {
				e.Errorf("reading %s: %s", path, err)
				continue
			}
			if len(data)%edgeUnit != 0 {
				e.Errorf("%s: size %d is not a multiple of edge_unit %d", path, len(data), edgeUnit)
				continue
			}
			conservedSize += int64(len(data))
			for pos := 0; pos+edgeUnit <= len(data); pos += edgeUnit {
				rec := edgegrid.Decode(d.EdgeType, data[pos:pos+edgeUnit])
				if si, sj := part.Of(uint64(rec.Src)), part.Of(uint64(rec.Dst)); si != i || sj != j {
					e.Errorf("%s: edge (%d,%d) belongs in block (%d,%d)", path, rec.Src, rec.Dst, si, sj)
				}
			}
			fp := checksum.BlockFingerprint(data, edgeUnit)
			rep.Fingerprint[filepath.Base(path)] = fp
			allBlocksFingerprint ^= fp
		}
	}

	expectedSize := int64(d.Edges) * int64(edgeUnit)
	if conservedSize != expectedSize {
		e.Errorf("conservation: sum of block sizes %d != E*edge_unit %d", conservedSize, expectedSize)
	}

	checkLinear(dir, "column", d, edgeUnit, e, rep.Digests)
	checkLinear(dir, "row", d, edgeUnit, e, rep.Digests)

	if inputPath != "" {
		inFp, n, err := fingerprintFile(inputPath, edgeUnit)
		if err != nil {
			e.Errorf("fingerprinting input: %s", err)
		} else {
			if n != d.Edges {
				e.Errorf("meta fidelity: input has %d edges, meta says %d", n, d.Edges)
			}
			if inFp != allBlocksFingerprint {
				e.Errorf("multiset equality: block fingerprints do not match input fingerprint")
			}
		}
	}
	return rep
}

// checkLinear verifies one linearized view ("column" or "row"): the
// offset index has p*p+1 entries and its final entry equals the view's
// file size, and the view's digest is recorded. The intermediate
// offsets and the view's bytes are not compared against the block
// files.
func checkLinear(dir, name string, d meta.Descriptor, edgeUnit int, e *errorWriter, digests map[string][32]byte) {
	p := d.Partitions
	offsets, err := readOffsets(filepath.Join(dir, name+"_offset"))
	if err != nil {
		e.Errorf("reading %s_offset: %s", name, err)
		return
	}
	if len(offsets) != p*p+1 {
		e.Errorf("%s_offset: expected %d entries, got %d", name, p*p+1, len(offsets))
	}

	digest, err := checksum.FileDigest(filepath.Join(dir, name))
	if err != nil {
		e.Errorf("digesting %s: %s", name, err)
		return
	}
	digests[name] = digest

	info, err := os.Stat(filepath.Join(dir, name))
	if err != nil {
		e.Errorf("stat %s: %s", name, err)
		return
	}
	if len(offsets) > 0 && offsets[len(offsets)-1] != info.Size() {
		e.Errorf("%s_offset: final entry %d != file size %d", name, offsets[len(offsets)-1], info.Size())
	}
}

func readOffsets(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	br := bufio.NewReader(f)
	var out []int64
	var buf [8]byte
	for {
		_, err := io.ReadFull(br, buf[:])
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, int64(binary.LittleEndian.Uint64(buf[:])))
	}
}

func fingerprintFile(path string, edgeUnit int) (uint64, edgegrid.EdgeId, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	br := bufio.NewReaderSize(f, 1<<20)
	buf := make([]byte, edgeUnit)
	var fp uint64
	var n edgegrid.EdgeId
	for {
		_, err := io.ReadFull(br, buf)
		if err == io.EOF {
			return fp, n, nil
		}
		if err != nil {
			return 0, 0, err
		}
		fp ^= checksum.BlockFingerprint(buf, edgeUnit)
		n++
	}
}

func writeBundle(path string, rep bundle) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "meta: %d %d %d %d\n", rep.Meta.EdgeType, rep.Meta.Vertices, rep.Meta.Edges, rep.Meta.Partitions)
	for name, digest := range rep.Digests {
		fmt.Fprintf(&sb, "digest %s: %x\n", name, digest)
	}
	for name, fp := range rep.Fingerprint {
		fmt.Fprintf(&sb, "fingerprint %s: %016x\n", name, fp)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return err
	}
	compressed := enc.EncodeAll([]byte(sb.String()), nil)
	return os.WriteFile(path, compressed, 0644)
}
