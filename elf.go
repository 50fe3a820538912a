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
	"errors"
	"fmt"
	"io"

	"github.com/go-kit/log/level"
)

// Sizes of the on-disk ELF32 records.
const (
	fileHeaderSize    = 52
	sectionHeaderSize = 40
	symbolEntrySize   = 16
)

var elfMagic = []byte{0x7f, 0x45, 0x4c, 0x46}

// FileHeader is the ELF32 file header together with the byte order that was
// used to decode the file.
type FileHeader struct {
	elf.Header32
	ByteOrder binary.ByteOrder
}

// Class returns the file class marker from the identification bytes.
func (h *FileHeader) Class() elf.Class {
	return elf.Class(h.Ident[elf.EI_CLASS])
}

// SectionHeader describes a single section of the file. Entries are kept in
// file order so a symbol's section index can be used to look its section up.
type SectionHeader struct {
	// Name is resolved through the section name string table. It is empty if
	// the file has no usable section name table.
	Name      string
	NameIndex uint32
	Type      elf.SectionType
	Flags     elf.SectionFlag
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
}

func readFileHeader(r io.ReaderAt) (*FileHeader, error) {
	buf := make([]byte, fileHeaderSize)
	if err := readFull(r, 0, buf); err != nil {
		return nil, fmt.Errorf("error when reading the ELF header: %w", err)
	}
	if !fileMagicMatch(buf, elfMagic) {
		return nil, fmt.Errorf("%w: bad magic", ErrUnsupportedFile)
	}
	if class := elf.Class(buf[elf.EI_CLASS]); class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("%w: class %s", ErrUnsupportedFile, class)
	}

	hdr := &FileHeader{}
	switch data := elf.Data(buf[elf.EI_DATA]); data {
	case elf.ELFDATA2LSB:
		hdr.ByteOrder = binary.LittleEndian
	case elf.ELFDATA2MSB:
		hdr.ByteOrder = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: data encoding %s", ErrUnsupportedFile, data)
	}

	if err := binary.Read(bytes.NewReader(buf), hdr.ByteOrder, &hdr.Header32); err != nil {
		return nil, fmt.Errorf("%w: error when decoding the ELF header: %w", ErrIO, err)
	}
	return hdr, nil
}

// readSectionHeaders reads the section header table described by the file
// header. Entries are read with a stride of Shentsize; only the leading
// Elf32_Shdr part of each entry is decoded.
func (f *File) readSectionHeaders() ([]SectionHeader, error) {
	if f.Shnum == 0 {
		return nil, nil
	}
	if f.Shentsize < sectionHeaderSize {
		return nil, fmt.Errorf("%w: section header entry size %d", ErrMalformedFile, f.Shentsize)
	}

	raw, err := f.readAt(uint64(f.Shoff), uint64(f.Shentsize)*uint64(f.Shnum))
	if err != nil {
		return nil, fmt.Errorf("error when reading the section header table: %w", err)
	}

	sections := make([]SectionHeader, f.Shnum)
	for i := range sections {
		var sh elf.Section32
		entry := raw[i*int(f.Shentsize) : i*int(f.Shentsize)+sectionHeaderSize]
		if err := binary.Read(bytes.NewReader(entry), f.ByteOrder, &sh); err != nil {
			return nil, fmt.Errorf("%w: error when decoding section header %d: %w", ErrIO, i, err)
		}
		sections[i] = SectionHeader{
			NameIndex: sh.Name,
			Type:      elf.SectionType(sh.Type),
			Flags:     elf.SectionFlag(sh.Flags),
			Addr:      sh.Addr,
			Offset:    sh.Off,
			Size:      sh.Size,
			Link:      sh.Link,
			Info:      sh.Info,
			Addralign: sh.Addralign,
			Entsize:   sh.Entsize,
		}
	}

	f.resolveSectionNames(sections)
	level.Debug(f.logger).Log("msg", "section headers loaded", "count", len(sections), "offset", f.Shoff)
	return sections, nil
}

// resolveSectionNames fills in the section names from the section name string
// table. Names are a convenience, so a missing or broken table only leaves
// them empty.
func (f *File) resolveSectionNames(sections []SectionHeader) {
	idx := int(f.Shstrndx)
	if idx == int(elf.SHN_UNDEF) || idx >= len(sections) {
		return
	}
	strtab, err := f.SectionData(&sections[idx])
	if err != nil {
		level.Debug(f.logger).Log("msg", "section names unavailable", "err", err)
		return
	}
	for i := range sections {
		if name, ok := cstring(strtab, sections[i].NameIndex); ok {
			sections[i].Name = name
		}
	}
}

// readAt returns size bytes of the file starting at off. Requests above the
// buffer limit are refused before anything is allocated.
func (f *File) readAt(off, size uint64) ([]byte, error) {
	if size > f.maxBufferSize {
		return nil, fmt.Errorf("%w: %d bytes requested, limit is %d", ErrAllocation, size, f.maxBufferSize)
	}
	buf := make([]byte, size)
	if err := readFull(f.reader, int64(off), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readFull(r io.ReaderAt, off int64, buf []byte) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w: %d of %d bytes at offset %d", ErrIO, ErrNotEnoughBytesRead, n, len(buf), off)
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
