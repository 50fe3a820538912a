// Copyright 2024 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package hnm

import "errors"

var (
	// ErrIO is returned if the file is missing, can't be read or is shorter than
	// the structures it describes.
	ErrIO = errors.New("failed to read file")
	// ErrOpenFile is returned if the file can't be opened. It is always
	// accompanied by ErrIO.
	ErrOpenFile = errors.New("failed to open file")
	// ErrNotEnoughBytesRead is returned if read call returned less bytes than what is needed.
	// It is always accompanied by ErrIO.
	ErrNotEnoughBytesRead = errors.New("not enough bytes read")
	// ErrUnsupportedFile is returned if the file is not a 32-bit ELF file.
	ErrUnsupportedFile = errors.New("unsupported ELF file format")
	// ErrAllocation is returned when a table is larger than the buffer limit.
	ErrAllocation = errors.New("memory allocation error")
	// ErrNoSymbols is returned if the file has no symbol table section.
	ErrNoSymbols = errors.New("no symbols")
	// ErrMalformedFile is returned when a cross reference inside the file, for
	// example a string table link or a section index, is out of range.
	ErrMalformedFile = errors.New("malformed file")
	// ErrSectionDoesNotExist is returned when accessing a section that does not exist.
	ErrSectionDoesNotExist = errors.New("section does not exist")
)

// PathError records the file that failed to be processed together with the
// reason.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// reasons is ordered so the most specific kind is reported first.
var reasons = []error{
	ErrOpenFile,
	ErrUnsupportedFile,
	ErrAllocation,
	ErrNoSymbols,
	ErrMalformedFile,
	ErrIO,
}

// Reason returns the short diagnostic for err, as printed after the file path
// by the command line tool. Errors that are not one of the package's error
// kinds are returned as is.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r) {
			return r.Error()
		}
	}
	return err.Error()
}
