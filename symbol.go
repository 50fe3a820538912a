package hnm

import "debug/elf"

// Symbol is a symbol as listed by the tool.
type Symbol struct {
	Name  string
	Value uint32
	// Type is the one character nm type code.
	Type byte
}

// Undefined reports whether the symbol has no address to print.
func (s Symbol) Undefined() bool {
	return s.Type == 'U' || s.Type == 'w'
}

// listed reports whether a symbol table entry is printed at all. Unnamed
// entries and source file markers are not.
func listed(s SymbolEntry) bool {
	return s.NameIndex != 0 && s.Type() != elf.STT_FILE
}
