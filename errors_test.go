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
	"errors"
	"testing"
)

func TestConfigErrorUnwrapsUnderlyingError(t *testing.T) {
	inner := errors.New("disk full")
	e := &ConfigError{Msg: "writing output", Err: inner}
	if !errors.Is(e, inner) {
		t.Errorf("errors.Is did not find the wrapped error through ConfigError")
	}
}

func TestConfigErrorMessageWithoutUnderlyingError(t *testing.T) {
	e := &ConfigError{Msg: "vertex count is required"}
	if e.Error() == "" {
		t.Errorf("ConfigError.Error() returned empty string")
	}
}

func TestFormatErrorMessage(t *testing.T) {
	e := &FormatError{Msg: "size is not a multiple of edge_unit"}
	if e.Error() == "" {
		t.Errorf("FormatError.Error() returned empty string")
	}
}

func TestInvariantErrorMessage(t *testing.T) {
	e := &InvariantError{Msg: "cursor mismatch"}
	if e.Error() == "" {
		t.Errorf("InvariantError.Error() returned empty string")
	}
}
