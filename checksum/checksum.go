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

// Package checksum provides two kinds of fingerprint used by the
// verifier and the idempotence test: an order-independent per-block
// fingerprint (for multiset equality between two edge sets regardless
// of edge order) and an order-dependent whole-file digest (for
// comparing two runs' final artifacts byte-for-byte).
package checksum

import (
	"fmt"
	"io"
	"os"

	"github.com/dchest/siphash"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/slices"
)

// k0 and k1 form a fixed siphash key. It only needs to be stable
// within a single verification run (comparing two blocks produced by
// the same run, or across two reruns of this same program), not
// cryptographically secret.
const k0, k1 = 0x6564676567726964, 0x66696e676572706e

// BlockFingerprint returns an order-independent fingerprint of a
// block's edge records: the XOR of siphash.Hash(k0, k1, record) over
// every edgeUnit-wide record in data. Two blocks holding the same
// multiset of edges in any order fingerprint identically.
func BlockFingerprint(data []byte, edgeUnit int) uint64 {
	var acc uint64
	for pos := 0; pos+edgeUnit <= len(data); pos += edgeUnit {
		acc ^= siphash.Hash(k0, k1, data[pos:pos+edgeUnit])
	}
	return acc
}

// FileDigest returns the blake2b-256 digest of the file at path, an
// order-dependent whole-file fingerprint suitable for comparing two
// runs' column/row/meta artifacts byte-for-byte.
func FileDigest(path string) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("checksum: opening %s: %w", path, err)
	}
	defer f.Close()
	h, err := blake2b.New256(nil)
	if err != nil {
		return [32]byte{}, err
	}
	if _, err := io.Copy(h, f); err != nil {
		return [32]byte{}, fmt.Errorf("checksum: reading %s: %w", path, err)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Mismatch names one path whose fingerprint or digest didn't match
// expectations.
type Mismatch struct {
	Path string
	Want string
	Got  string
}

// SortMismatches returns m sorted by Path, for deterministic
// diagnostic output.
func SortMismatches(m []Mismatch) []Mismatch {
	slices.SortFunc(m, func(a, b Mismatch) bool { return a.Path < b.Path })
	return m
}
