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

import "fmt"

// ConfigError indicates a missing or malformed configuration value
// (bad flags, bad job descriptor). The caller should print usage and
// exit nonzero before doing any work.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s", e.Msg, e.Err)
	}
	return fmt.Sprintf("config: %s", e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FormatError indicates the input file does not match the declared
// edge_type (its size is not a multiple of edge_unit). Nothing has
// been persisted when this is returned.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return fmt.Sprintf("input format: %s", e.Msg) }

// InvariantError indicates a bug, not a runtime condition: a
// prefix-sum total or cursor/offset mismatch after scatter. It is
// always fatal.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return fmt.Sprintf("invariant violation: %s", e.Msg) }
