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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type testSection struct {
	name  string
	typ   elf.SectionType
	flags elf.SectionFlag
	link  uint32
	data  []byte
	// symbols are encoded with the builder's byte order in front of data.
	symbols []elf.Sym32
	// size overrides the size of the section, used for SHT_NOBITS.
	size uint32
}

func (s testSection) content(order binary.ByteOrder) []byte {
	if s.symbols == nil {
		return s.data
	}
	buf := &bytes.Buffer{}
	binary.Write(buf, order, s.symbols)
	buf.Write(s.data)
	return buf.Bytes()
}

type testSymbol struct {
	name  string
	value uint32
	bind  elf.SymBind
	typ   elf.SymType
	shndx elf.SectionIndex
}

// elfBuilder assembles ELF32 relocatable objects for the tests. The layout is
// the file header, the section contents, a section name table and the
// section header table.
type elfBuilder struct {
	order     binary.ByteOrder
	class     elf.Class
	data      elf.Data
	shentsize uint16
	sections  []testSection
	// mutate is applied to the header right before it is written.
	mutate func(*elf.Header32)
}

func newELFBuilder() *elfBuilder {
	return &elfBuilder{
		order:     binary.LittleEndian,
		class:     elf.ELFCLASS32,
		data:      elf.ELFDATA2LSB,
		shentsize: sectionHeaderSize,
	}
}

// addSection appends a section and returns its index in the section header
// table.
func (b *elfBuilder) addSection(s testSection) elf.SectionIndex {
	b.sections = append(b.sections, s)
	return elf.SectionIndex(len(b.sections))
}

// addSymbolTable appends a string table and a symbol table linked to it. The
// reserved null symbol is written first. The index of the symbol table is
// returned.
func (b *elfBuilder) addSymbolTable(name string, syms []testSymbol) elf.SectionIndex {
	strtab := []byte{0}
	entries := []elf.Sym32{{}}
	for _, s := range syms {
		var nameIdx uint32
		if s.name != "" {
			nameIdx = uint32(len(strtab))
			strtab = append(strtab, s.name...)
			strtab = append(strtab, 0)
		}
		entries = append(entries, elf.Sym32{
			Name:  nameIdx,
			Value: s.value,
			Info:  elf.ST_INFO(s.bind, s.typ),
			Shndx: uint16(s.shndx),
		})
	}
	strIdx := b.addSection(testSection{name: ".strtab", typ: elf.SHT_STRTAB, data: strtab})
	return b.addSection(testSection{name: name, typ: elf.SHT_SYMTAB, link: uint32(strIdx), symbols: entries})
}

func (b *elfBuilder) bytes() []byte {
	sections := append([]testSection{{}}, b.sections...)

	shstrtab := []byte{0}
	names := make([]uint32, len(sections)+1)
	for i, s := range sections {
		if s.name == "" {
			continue
		}
		names[i] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, s.name...)
		shstrtab = append(shstrtab, 0)
	}
	shstrndx := len(sections)
	names[shstrndx] = uint32(len(shstrtab))
	shstrtab = append(shstrtab, ".shstrtab\x00"...)
	sections = append(sections, testSection{name: ".shstrtab", typ: elf.SHT_STRTAB, data: shstrtab})

	body := &bytes.Buffer{}
	offsets := make([]uint32, len(sections))
	sizes := make([]uint32, len(sections))
	for i, s := range sections {
		if i == 0 {
			continue
		}
		data := s.content(b.order)
		offsets[i] = uint32(fileHeaderSize + body.Len())
		sizes[i] = uint32(len(data))
		if s.size != 0 {
			sizes[i] = s.size
		}
		if s.typ != elf.SHT_NOBITS {
			body.Write(data)
		}
	}
	for body.Len()%4 != 0 {
		body.WriteByte(0)
	}

	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elfMagic)
	ident[elf.EI_CLASS] = byte(b.class)
	ident[elf.EI_DATA] = byte(b.data)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hdr := elf.Header32{
		Ident:     ident,
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_386),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     uint32(fileHeaderSize + body.Len()),
		Ehsize:    fileHeaderSize,
		Shentsize: b.shentsize,
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(shstrndx),
	}
	if b.mutate != nil {
		b.mutate(&hdr)
	}

	out := &bytes.Buffer{}
	binary.Write(out, b.order, hdr)
	out.Write(body.Bytes())
	for i, s := range sections {
		binary.Write(out, b.order, elf.Section32{
			Name:  names[i],
			Type:  uint32(s.typ),
			Flags: uint32(s.flags),
			Off:   offsets[i],
			Size:  sizes[i],
			Link:  s.link,
		})
		if pad := int(b.shentsize) - sectionHeaderSize; pad > 0 {
			out.Write(make([]byte, pad))
		}
	}
	return out.Bytes()
}

// Section indices of the sample object.
const (
	secText elf.SectionIndex = iota + 1
	secData
	secBss
	secRodata
	secComment
	secDynamic
	secNote
)

// sampleObject returns a builder for an object covering every classification
// rule, together with the lines the tool prints for it.
func sampleObject() (*elfBuilder, []string) {
	b := newELFBuilder()
	b.addSection(testSection{name: ".text", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, data: make([]byte, 32)})
	b.addSection(testSection{name: ".data", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_WRITE, data: make([]byte, 16)})
	b.addSection(testSection{name: ".bss", typ: elf.SHT_NOBITS, flags: elf.SHF_ALLOC | elf.SHF_WRITE, size: 64})
	b.addSection(testSection{name: ".rodata", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC, data: []byte("hello\x00\x00\x00")})
	b.addSection(testSection{name: ".comment", typ: elf.SHT_PROGBITS, data: []byte("GCC\x00")})
	b.addSection(testSection{name: ".dynamic", typ: elf.SHT_DYNAMIC, flags: elf.SHF_ALLOC | elf.SHF_WRITE, data: make([]byte, 8)})
	b.addSection(testSection{name: ".note.ABI-tag", typ: elf.SHT_NOTE, flags: elf.SHF_ALLOC, data: make([]byte, 16)})
	b.addSymbolTable(".symtab", []testSymbol{
		{name: "sample.c", bind: elf.STB_LOCAL, typ: elf.STT_FILE, shndx: elf.SHN_ABS},
		{bind: elf.STB_LOCAL, typ: elf.STT_SECTION, shndx: secText},
		{name: "helper", value: 0x4, bind: elf.STB_LOCAL, typ: elf.STT_FUNC, shndx: secText},
		{name: "local_buf", value: 0x20, bind: elf.STB_LOCAL, typ: elf.STT_OBJECT, shndx: secBss},
		{name: "_DYNAMIC", bind: elf.STB_LOCAL, typ: elf.STT_OBJECT, shndx: secDynamic},
		{name: "main", value: 0x10, bind: elf.STB_GLOBAL, typ: elf.STT_FUNC, shndx: secText},
		{name: "counter", value: 0x4, bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, shndx: secData},
		{name: "buffer", bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, shndx: secBss},
		{name: "greeting", bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, shndx: secRodata},
		{name: "printf", bind: elf.STB_GLOBAL, typ: elf.STT_NOTYPE, shndx: elf.SHN_UNDEF},
		{name: "weak_ref", bind: elf.STB_WEAK, typ: elf.STT_FUNC, shndx: elf.SHN_UNDEF},
		{name: "weak_fn", value: 0x18, bind: elf.STB_WEAK, typ: elf.STT_FUNC, shndx: secText},
		{name: "weak_obj", value: 0x8, bind: elf.STB_WEAK, typ: elf.STT_OBJECT, shndx: secData},
		{name: "abs_sym", value: 0xdeadbeef, bind: elf.STB_GLOBAL, typ: elf.STT_NOTYPE, shndx: elf.SHN_ABS},
		{name: "common_sym", value: 0x4, bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, shndx: elf.SHN_COMMON},
		{name: "unique_obj", value: 0xc, bind: stbGNUUnique, typ: elf.STT_OBJECT, shndx: secData},
		{name: "comment_sym", bind: elf.STB_GLOBAL, typ: elf.STT_NOTYPE, shndx: secComment},
		{name: "note_sym", bind: elf.STB_GLOBAL, typ: elf.STT_NOTYPE, shndx: secNote},
	})
	return b, []string{
		"00000004 t helper",
		"00000020 b local_buf",
		"00000000 d _DYNAMIC",
		"00000010 T main",
		"00000004 D counter",
		"00000000 B buffer",
		"00000000 R greeting",
		"         U printf",
		"         w weak_ref",
		"00000018 W weak_fn",
		"00000008 V weak_obj",
		"deadbeef A abs_sym",
		"00000004 C common_sym",
		"0000000c u unique_obj",
		"00000000 ? comment_sym",
		"00000000 t note_sym",
	}
}

// writeTestFile stores data under name in fs.
func writeTestFile(t *testing.T, fs afero.Fs, name string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, data, 0644))
}
