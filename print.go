// This file is part of hnm.
//
// Copyright (C) 2024 GoRE Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package hnm

import (
	"bufio"
	"fmt"
	"io"
)

// FormatSymbol returns the output line for the symbol, without the trailing
// newline. Undefined symbols have a blank address column.
func FormatSymbol(s Symbol) string {
	if s.Undefined() {
		return fmt.Sprintf("%9s%c %s", "", s.Type, s.Name)
	}
	return fmt.Sprintf("%08x %c %s", s.Value, s.Type, s.Name)
}

// WriteSymbols writes one line per symbol to w, in the given order.
func WriteSymbols(w io.Writer, syms []Symbol) error {
	bw := bufio.NewWriter(w)
	for _, s := range syms {
		if _, err := fmt.Fprintln(bw, FormatSymbol(s)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
