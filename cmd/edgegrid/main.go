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

// Command edgegrid preprocesses a flat binary edge list into a
// partitioned edge grid for an out-of-core graph engine.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/edgegrid-io/edgegrid"
	"github.com/edgegrid-io/edgegrid/config"
)

var (
	dashi string
	dasho string
	dashv uint64
	dashp int
	dasht int
	dashw int
	dashc string
)

func init() {
	flag.StringVar(&dashi, "i", "", "input edge list path")
	flag.StringVar(&dasho, "o", "", "output directory path")
	flag.Uint64Var(&dashv, "v", 0, "vertex count")
	flag.IntVar(&dashp, "p", 0, "partition count (default: vertices/64, clamped to at least 1)")
	flag.IntVar(&dasht, "t", 0, "edge type: 0=unweighted, 1=weighted")
	flag.IntVar(&dashw, "w", 0, "worker count (default: number of CPUs)")
	flag.StringVar(&dashc, "config", "", "YAML job descriptor; flags override its values")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s -i input -o output -v vertices [-p partitions] [-t edge_type] [-w workers] [-config job.yaml]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	job := config.Job{}
	if dashc != "" {
		var err error
		job, err = config.LoadYAML(dashc)
		if err != nil {
			exitf("%s", err)
		}
	}

	flagToKey := map[string]string{
		"i": "input",
		"o": "output",
		"v": "vertices",
		"p": "partitions",
		"t": "edge_type",
		"w": "workers",
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		if key, ok := flagToKey[f.Name]; ok {
			set[key] = true
		}
	})

	job = job.Merge(config.Job{
		Input:      dashi,
		Output:     dasho,
		Vertices:   dashv,
		Partitions: dashp,
		EdgeType:   dasht,
		Workers:    dashw,
	}, set)
	job, err := job.Resolve()
	if err != nil {
		usage()
		exitf("%s", err)
	}

	err = edgegrid.Run(edgegrid.Params{
		Input:      job.Input,
		Output:     job.Output,
		Vertices:   job.Vertices,
		Partitions: job.Partitions,
		EdgeType:   edgegrid.EdgeType(job.EdgeType),
		Workers:    job.Workers,
	})
	if err != nil {
		exitf("edgegrid: %s", err)
	}
}
