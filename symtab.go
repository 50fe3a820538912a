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
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/samber/lo"
)

// SymbolEntry is a raw entry of the symbol table.
type SymbolEntry struct {
	// NameIndex is the offset of the name in the linked string table.
	NameIndex uint32
	Value     uint32
	Size      uint32
	Info      uint8
	Other     uint8
	Shndx     elf.SectionIndex
}

// Bind returns the binding encoded in the info byte.
func (s SymbolEntry) Bind() elf.SymBind {
	return elf.ST_BIND(s.Info)
}

// Type returns the symbol type encoded in the info byte.
func (s SymbolEntry) Type() elf.SymType {
	return elf.ST_TYPE(s.Info)
}

// symbolTable is the selected SYMTAB section loaded into memory together with
// the string table it links to.
type symbolTable struct {
	section int
	entries []SymbolEntry
	strtab  []byte
}

func (t *symbolTable) name(s SymbolEntry) (string, error) {
	name, ok := cstring(t.strtab, s.NameIndex)
	if !ok {
		return "", fmt.Errorf("%w: symbol name offset %d outside of a %d byte string table", ErrMalformedFile, s.NameIndex, len(t.strtab))
	}
	return name, nil
}

// lastSectionOfType selects the section of the given type that appears last in
// the section header table. A file carrying more than one symbol table is
// listed from the last one.
func lastSectionOfType(sections []SectionHeader, typ elf.SectionType) (int, bool) {
	_, idx, ok := lo.FindLastIndexOf(sections, func(s SectionHeader) bool {
		return s.Type == typ
	})
	return idx, ok
}

func (f *File) loadSymbolTable() (*symbolTable, error) {
	idx, ok := lastSectionOfType(f.Sections, elf.SHT_SYMTAB)
	if !ok {
		return nil, ErrNoSymbols
	}
	sec := &f.Sections[idx]
	level.Debug(f.logger).Log("msg", "symbol table selected", "section", idx, "name", sec.Name, "size", sec.Size)

	// A trailing partial entry is ignored.
	count := uint64(sec.Size) / symbolEntrySize
	raw, err := f.readAt(uint64(sec.Offset), count*symbolEntrySize)
	if err != nil {
		return nil, fmt.Errorf("error when reading the symbol table: %w", err)
	}
	entries := make([]SymbolEntry, count)
	for i := range entries {
		var sym elf.Sym32
		entry := raw[i*symbolEntrySize : (i+1)*symbolEntrySize]
		if err := binary.Read(bytes.NewReader(entry), f.ByteOrder, &sym); err != nil {
			return nil, fmt.Errorf("%w: error when decoding symbol %d: %w", ErrIO, i, err)
		}
		entries[i] = SymbolEntry{
			NameIndex: sym.Name,
			Value:     sym.Value,
			Size:      sym.Size,
			Info:      sym.Info,
			Other:     sym.Other,
			Shndx:     elf.SectionIndex(sym.Shndx),
		}
	}

	if uint64(sec.Link) >= uint64(len(f.Sections)) {
		return nil, fmt.Errorf("%w: symbol table links to section %d of %d", ErrMalformedFile, sec.Link, len(f.Sections))
	}
	strtab, err := f.SectionData(&f.Sections[sec.Link])
	if err != nil {
		return nil, fmt.Errorf("error when reading the string table: %w", err)
	}

	return &symbolTable{section: idx, entries: entries, strtab: strtab}, nil
}
