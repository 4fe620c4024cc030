// Package elftest builds minimal synthetic ELF images for tests.
//
// The images carry exactly what the elfview parser consumes: an
// identification header, section headers, one symbol table, and one or more
// string tables. Nothing in them is loadable; they exist to be parsed.
package elftest

import (
	"bytes"
	"encoding/binary"
)

// Sym is one symbol to place in the image's symbol table.
type Sym struct {
	Name  string
	Value uint64
}

// Options controls the shape of the generated image.
type Options struct {
	// Class64 selects ELFCLASS64; the default is ELFCLASS32.
	Class64 bool

	// Syms populate the symbol table, in order, after the initial null
	// record.
	Syms []Sym

	// SymEntSize overrides the symbol table's sh_entsize field. Zero means
	// the class's correct record size.
	SymEntSize uint64

	// OmitSymtab drops the symbol-table section.
	OmitSymtab bool

	// OmitStrtab drops all string-table sections.
	OmitStrtab bool

	// DecoyStrtab inserts an earlier, garbage string table before the real
	// one, so that only last-table-wins parsing finds the names.
	DecoyStrtab bool
}

// Build renders an image according to opts.
func Build(opts Options) []byte {
	le := binary.LittleEndian

	// String table: leading NUL, then each name NUL-terminated.
	strtab := []byte{0}
	nameOff := make([]uint32, len(opts.Syms))
	for i, s := range opts.Syms {
		nameOff[i] = uint32(len(strtab))
		strtab = append(strtab, s.Name...)
		strtab = append(strtab, 0)
	}

	decoy := []byte("\x00garbage\x00names\x00")

	// Symbol table: null record first, as real images have.
	var symtab bytes.Buffer
	symSize := 16
	if opts.Class64 {
		symSize = 24
	}
	symtab.Write(make([]byte, symSize))
	for i, s := range opts.Syms {
		rec := make([]byte, symSize)
		le.PutUint32(rec[0:], nameOff[i])
		if opts.Class64 {
			le.PutUint64(rec[8:], s.Value)
		} else {
			le.PutUint32(rec[4:], uint32(s.Value))
		}
		symtab.Write(rec)
	}

	entSize := uint64(symSize)
	if opts.SymEntSize != 0 {
		entSize = opts.SymEntSize
	}

	type section struct {
		typ     uint32
		data    []byte
		entsize uint64
	}
	secs := []section{{typ: 0}} // null section
	if !opts.OmitSymtab {
		secs = append(secs, section{typ: 2, data: symtab.Bytes(), entsize: entSize})
	}
	if !opts.OmitStrtab {
		if opts.DecoyStrtab {
			secs = append(secs, section{typ: 3, data: decoy})
		}
		secs = append(secs, section{typ: 3, data: strtab})
	}

	ehdrSize := 52
	shentsize := 40
	if opts.Class64 {
		ehdrSize = 64
		shentsize = 64
	}

	// Section data follows the ELF header; section headers follow the data.
	offsets := make([]uint64, len(secs))
	off := uint64(ehdrSize)
	for i, s := range secs {
		offsets[i] = off
		off += uint64(len(s.data))
	}
	shoff := off

	var img bytes.Buffer

	ehdr := make([]byte, ehdrSize)
	copy(ehdr, []byte{0x7f, 'E', 'L', 'F'})
	if opts.Class64 {
		ehdr[4] = 2
	} else {
		ehdr[4] = 1
	}
	ehdr[5] = 1 // little-endian
	ehdr[6] = 1 // version
	if opts.Class64 {
		le.PutUint64(ehdr[40:], shoff)
		le.PutUint16(ehdr[58:], uint16(shentsize))
		le.PutUint16(ehdr[60:], uint16(len(secs)))
	} else {
		le.PutUint32(ehdr[32:], uint32(shoff))
		le.PutUint16(ehdr[46:], uint16(shentsize))
		le.PutUint16(ehdr[48:], uint16(len(secs)))
	}
	img.Write(ehdr)

	for _, s := range secs {
		img.Write(s.data)
	}

	for i, s := range secs {
		sh := make([]byte, shentsize)
		le.PutUint32(sh[4:], s.typ)
		if opts.Class64 {
			le.PutUint64(sh[24:], offsets[i])
			le.PutUint64(sh[32:], uint64(len(s.data)))
			le.PutUint64(sh[56:], s.entsize)
		} else {
			le.PutUint32(sh[16:], uint32(offsets[i]))
			le.PutUint32(sh[20:], uint32(len(s.data)))
			le.PutUint32(sh[36:], uint32(s.entsize))
		}
		img.Write(sh)
	}

	return img.Bytes()
}
