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

// Package config resolves the orchestrator's configuration surface: a
// job descriptor sourced from flags, an optional YAML file, or both
// (flags win when both are given).
package config

import (
	"os"
	"runtime"

	"sigs.k8s.io/yaml"

	"github.com/edgegrid-io/edgegrid"
)

// DefaultChunkSize derives a default partition count when one isn't
// given: partitions = V / DefaultChunkSize, clamped to at least 1. An
// unclamped division yields 0 partitions for small V, which would
// leave the whole graph unpartitioned; Resolve guards against that.
const DefaultChunkSize = 64

// Job is the resolved set of parameters the orchestrator needs to run
// one shuffle. Field names match the YAML job descriptor's keys via
// their struct tags.
type Job struct {
	Input      string `json:"input"`
	Output     string `json:"output"`
	Vertices   uint64 `json:"vertices"`
	Partitions int    `json:"partitions,omitempty"`
	EdgeType   int    `json:"edge_type,omitempty"`
	Workers    int    `json:"workers,omitempty"`
}

// LoadYAML parses a job descriptor from a YAML (or JSON, which is
// valid YAML) file at path.
func LoadYAML(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, &edgegrid.ConfigError{Msg: "reading config file", Err: err}
	}
	var j Job
	if err := yaml.Unmarshal(data, &j); err != nil {
		return Job{}, &edgegrid.ConfigError{Msg: "parsing config file", Err: err}
	}
	return j, nil
}

// Merge overlays the fields of override named in set onto j, so that
// flag-supplied values win over a config file's values. set holds the
// JSON tag name of every field the caller actually set (e.g. via
// flag.Visit), rather than relying on override's zero value to mean
// "not provided": that conflation would make a flag set to the
// zero value indistinguishable from an absent flag, and 0 is a
// meaningful edge_type (unweighted), not just a sentinel.
func (j Job) Merge(override Job, set map[string]bool) Job {
	if set["input"] {
		j.Input = override.Input
	}
	if set["output"] {
		j.Output = override.Output
	}
	if set["vertices"] {
		j.Vertices = override.Vertices
	}
	if set["partitions"] {
		j.Partitions = override.Partitions
	}
	if set["edge_type"] {
		j.EdgeType = override.EdgeType
	}
	if set["workers"] {
		j.Workers = override.Workers
	}
	return j
}

// Resolve fills in defaults and validates j, returning the fully
// resolved job or a *edgegrid.ConfigError.
func (j Job) Resolve() (Job, error) {
	if j.Input == "" {
		return Job{}, &edgegrid.ConfigError{Msg: "input path is required"}
	}
	if j.Output == "" {
		return Job{}, &edgegrid.ConfigError{Msg: "output path is required"}
	}
	if j.Vertices == 0 {
		return Job{}, &edgegrid.ConfigError{Msg: "vertex count is required"}
	}
	if j.EdgeType != int(edgegrid.Unweighted) && j.EdgeType != int(edgegrid.Weighted) {
		return Job{}, &edgegrid.ConfigError{Msg: "edge type must be 0 (unweighted) or 1 (weighted)"}
	}
	if j.Partitions <= 0 {
		p := int(j.Vertices / DefaultChunkSize)
		if p < 1 {
			p = 1
		}
		j.Partitions = p
	}
	if j.Workers <= 0 {
		j.Workers = runtime.NumCPU()
	}
	return j, nil
}
