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

// Package meta reads and writes the one-line metadata descriptor the
// downstream engine reads on startup.
package meta

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/edgegrid-io/edgegrid"
)

// Descriptor is the decoded content of a meta file.
type Descriptor struct {
	EdgeType   edgegrid.EdgeType
	Vertices   uint64
	Edges      edgegrid.EdgeId
	Partitions int
}

// Write writes the meta file under dir: a single ASCII line
// "<edge_type> <V> <E> <P>" with no trailing newline.
func Write(dir string, d Descriptor) error {
	path := filepath.Join(dir, "meta")
	line := fmt.Sprintf("%d %d %d %d", d.EdgeType, d.Vertices, d.Edges, d.Partitions)
	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		return fmt.Errorf("meta: writing %s: %w", path, err)
	}
	return nil
}

// Read parses the meta file under dir.
func Read(dir string) (Descriptor, error) {
	path := filepath.Join(dir, "meta")
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("meta: reading %s: %w", path, err)
	}
	var d Descriptor
	var edgeType int
	n, err := fmt.Sscanf(string(data), "%d %d %d %d", &edgeType, &d.Vertices, &d.Edges, &d.Partitions)
	if err != nil || n != 4 {
		return Descriptor{}, fmt.Errorf("meta: malformed %s", path)
	}
	d.EdgeType = edgegrid.EdgeType(edgeType)
	return d, nil
}
