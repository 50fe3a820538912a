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
	"debug/elf"
	"fmt"
)

// stbGNUUnique is the GNU extension binding STB_GNU_UNIQUE. It shares its
// value with STB_LOOS.
const stbGNUUnique elf.SymBind = 10

// TypeUnknown is the type code of a symbol that none of the rules classify.
const TypeUnknown = '?'

const (
	flagsText   = elf.SHF_ALLOC | elf.SHF_EXECINSTR
	flagsRodata = elf.SHF_ALLOC
	flagsData   = elf.SHF_ALLOC | elf.SHF_WRITE
)

// Classify returns the nm type code of the symbol. The sections are the
// file's section header table in file order. Local symbols always get a lower
// case code.
func Classify(sym SymbolEntry, sections []SectionHeader) (byte, error) {
	code, err := classify(sym, sections)
	if err != nil {
		return 0, err
	}
	return normalizeType(code, sym.Bind()), nil
}

// classify applies the rules in order, the first match decides.
func classify(sym SymbolEntry, sections []SectionHeader) (byte, error) {
	bind := sym.Bind()
	if bind == elf.STB_WEAK {
		switch {
		case sym.Shndx == elf.SHN_UNDEF:
			return 'w', nil
		case sym.Type() == elf.STT_OBJECT:
			return 'V', nil
		}
		return 'W', nil
	}

	switch sym.Shndx {
	case elf.SHN_UNDEF:
		return 'U', nil
	case elf.SHN_ABS:
		return 'A', nil
	case elf.SHN_COMMON:
		return 'C', nil
	}
	if sym.Shndx >= elf.SHN_LORESERVE {
		return TypeUnknown, nil
	}

	if int(sym.Shndx) >= len(sections) {
		return 0, fmt.Errorf("%w: symbol refers to section %d of %d", ErrMalformedFile, sym.Shndx, len(sections))
	}
	if bind == stbGNUUnique {
		return 'u', nil
	}
	return sectionType(&sections[sym.Shndx]), nil
}

func sectionType(sec *SectionHeader) byte {
	switch {
	case sec.Type == elf.SHT_NOBITS && sec.Flags == flagsData:
		return 'B'
	case sec.Type == elf.SHT_PROGBITS:
		switch sec.Flags {
		case flagsText:
			return 'T'
		case flagsRodata:
			return 'R'
		case flagsData:
			return 'D'
		}
		return TypeUnknown
	case sec.Type == elf.SHT_DYNAMIC:
		return 'D'
	}
	return 't'
}

// normalizeType is the last step of the classification: whatever rule produced
// the code, a local symbol is reported in lower case.
func normalizeType(code byte, bind elf.SymBind) byte {
	if bind == elf.STB_LOCAL && 'A' <= code && code <= 'Z' {
		return code + 'a' - 'A'
	}
	return code
}
