// Copyright 2024 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package hnm

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/afero"
)

// DefaultMaxBufferSize is the largest table the reader allocates unless
// configured otherwise with WithMaxBufferSize.
const DefaultMaxBufferSize = 256 << 20

// Option configures how a file is opened.
type Option func(*options)

type options struct {
	logger        log.Logger
	fs            afero.Fs
	maxBufferSize uint64
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:        log.NewNopLogger(),
		fs:            afero.NewOsFs(),
		maxBufferSize: DefaultMaxBufferSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used for debug output.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFs sets the file system Open reads from. The default is the OS file
// system.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithMaxBufferSize limits the size of a single table read from the file.
// Larger tables fail with ErrAllocation.
func WithMaxBufferSize(n uint64) Option {
	return func(o *options) {
		o.maxBufferSize = n
	}
}

// File is an opened 32-bit ELF file. The header and the section header table
// are read when the file is opened, the symbol table when Symbols is called.
type File struct {
	FileHeader
	// Sections is the section header table in file order.
	Sections []SectionHeader

	reader        io.ReaderAt
	logger        log.Logger
	maxBufferSize uint64
}

// Open opens the file at filePath and reads its headers.
func Open(filePath string, opts ...Option) (*File, error) {
	o := newOptions(opts)
	fh, err := o.fs.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrOpenFile, ErrIO, err)
	}
	f, err := newFile(fh, o)
	if err != nil {
		fh.Close()
		return nil, err
	}
	return f, nil
}

// NewFile reads the headers of the ELF file from r. If r is an io.Closer it is
// closed by Close.
func NewFile(r io.ReaderAt, opts ...Option) (*File, error) {
	return newFile(r, newOptions(opts))
}

func newFile(r io.ReaderAt, o *options) (*File, error) {
	hdr, err := readFileHeader(r)
	if err != nil {
		return nil, err
	}
	f := &File{
		FileHeader:    *hdr,
		reader:        r,
		logger:        o.logger,
		maxBufferSize: o.maxBufferSize,
	}
	level.Debug(f.logger).Log("msg", "ELF header loaded", "type", elf.Type(f.Type), "machine", elf.Machine(f.Machine), "byte_order", f.ByteOrder)

	f.Sections, err = f.readSectionHeaders()
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Section returns the first section with the given name, or nil.
func (f *File) Section(name string) *SectionHeader {
	for i := range f.Sections {
		if f.Sections[i].Name == name {
			return &f.Sections[i]
		}
	}
	return nil
}

// SectionData reads the raw content of the section. Sections without file
// content have no data.
func (f *File) SectionData(s *SectionHeader) ([]byte, error) {
	if s.Type == elf.SHT_NOBITS {
		return nil, nil
	}
	return f.readAt(uint64(s.Offset), uint64(s.Size))
}

// Symbols returns the listed symbols in symbol table order. Entries without a
// name and file markers are left out. Either all symbols are returned or an
// error.
func (f *File) Symbols() ([]Symbol, error) {
	tab, err := f.loadSymbolTable()
	if err != nil {
		return nil, err
	}

	syms := make([]Symbol, 0, len(tab.entries))
	for i, entry := range tab.entries {
		if !listed(entry) {
			continue
		}
		name, err := tab.name(entry)
		if err != nil {
			return nil, fmt.Errorf("symbol %d: %w", i, err)
		}
		typ, err := Classify(entry, f.Sections)
		if err != nil {
			return nil, fmt.Errorf("symbol %d (%s): %w", i, name, err)
		}
		syms = append(syms, Symbol{Name: name, Value: entry.Value, Type: typ})
	}
	level.Debug(f.logger).Log("msg", "symbols classified", "entries", len(tab.entries), "listed", len(syms))
	return syms, nil
}

// Close releases the underlying reader.
func (f *File) Close() error {
	return tryClose(f.reader)
}

