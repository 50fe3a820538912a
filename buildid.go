// Copyright 2024 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package hnm

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const (
	buildIDSectionName = ".note.gnu.build-id"
	ntGNUBuildID       = 3
)

var gnuNoteName = []byte("GNU\x00")

// BuildID returns the GNU build ID of the file as a hex string. If the file has
// no build ID note, ErrSectionDoesNotExist is returned.
func (f *File) BuildID() (string, error) {
	section := f.Section(buildIDSectionName)
	if section == nil || section.Type != elf.SHT_NOTE {
		return "", ErrSectionDoesNotExist
	}
	data, err := f.SectionData(section)
	if err != nil {
		return "", fmt.Errorf("error when reading %s: %w", buildIDSectionName, err)
	}
	return parseBuildIDNote(data, f.ByteOrder)
}

func parseBuildIDNote(data []byte, byteOrder binary.ByteOrder) (string, error) {
	r := bytes.NewReader(data)
	var nameLen uint32
	var descLen uint32
	var tag uint32
	err := binary.Read(r, byteOrder, &nameLen)
	if err != nil {
		return "", fmt.Errorf("%w: error when reading the note name length: %w", ErrMalformedFile, err)
	}
	err = binary.Read(r, byteOrder, &descLen)
	if err != nil {
		return "", fmt.Errorf("%w: error when reading the note descriptor length: %w", ErrMalformedFile, err)
	}
	err = binary.Read(r, byteOrder, &tag)
	if err != nil {
		return "", fmt.Errorf("%w: error when reading the note type: %w", ErrMalformedFile, err)
	}

	if tag != ntGNUBuildID {
		return "", fmt.Errorf("note type does not match expected value. 0x%x parsed", tag)
	}

	// The name is padded to a 4 byte boundary.
	descStart := 12 + (uint64(nameLen)+3)&^3
	descEnd := descStart + uint64(descLen)
	if descEnd > uint64(len(data)) {
		return "", fmt.Errorf("%w: build ID note is %d bytes, %d needed", ErrMalformedFile, len(data), descEnd)
	}
	if !bytes.Equal(data[12:12+uint64(nameLen)], gnuNoteName) {
		return "", fmt.Errorf("note name not as expected")
	}
	return hex.EncodeToString(data[descStart:descEnd]), nil
}
