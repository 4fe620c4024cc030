// Package elfview provides a read-only view over the ELF image of a loaded
// shared object.
//
// A View memory-maps the whole file and locates the two sections the address
// resolver needs: the string table and the symbol table. Section headers are
// read through bounds-checked accessors rather than pointer arithmetic; a
// truncated or malformed image yields an error, never an out-of-range read.
//
// Both ELFCLASS32 and ELFCLASS64 images are supported, detected from the
// class byte of the identification header.
//
// Views are intended to be cached for the life of the process: the mapping
// and the underlying descriptor are never released.
package elfview

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/coregx/ctrace/internal/conv"
)

// ELF constants, limited to what the view needs.
const (
	eiClass = 4 // File class byte index
	eiData  = 5 // Data encoding byte index

	elfClass32 = 1
	elfClass64 = 2

	elfDataLSB = 1
	elfDataMSB = 2

	shtSymtab = 2
	shtStrtab = 3

	// Symbol record sizes. The symbol table's sh_entsize must equal the
	// class's record size or the table is rejected.
	sym32Size = 16
	sym64Size = 24
)

// Errors returned by Open.
var (
	// ErrNotELF indicates the file does not start with the ELF magic.
	ErrNotELF = errors.New("not an ELF image")

	// ErrBadClass indicates an unknown file class byte.
	ErrBadClass = errors.New("unknown ELF class")

	// ErrBadEncoding indicates an unknown data encoding byte.
	ErrBadEncoding = errors.New("unknown ELF data encoding")

	// ErrTruncated indicates a header or section points outside the image.
	ErrTruncated = errors.New("truncated ELF image")

	// ErrNoStrtab indicates no string-table section was found.
	ErrNoStrtab = errors.New("no string table")

	// ErrNoSymtab indicates no symbol-table section was found.
	ErrNoSymtab = errors.New("no symbol table")

	// ErrSymEntSize indicates the symbol table's entry size does not match
	// the class's symbol-record size.
	ErrSymEntSize = errors.New("unexpected symbol record size")
)

// OpenError wraps an Open failure with the path that caused it.
type OpenError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("elfview: open %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpenError) Unwrap() error { return e.Err }

// Sym is one symbol record, reduced to the fields the resolver uses.
type Sym struct {
	// NameOff is the symbol name's byte offset into the string table.
	NameOff uint32

	// Value is the symbol's recorded address: an absolute address in the
	// main executable, a load-base-relative offset in a shared object.
	Value uint64
}

// View is the cached per-object metadata: the mapped image and the byte
// ranges of its string and symbol tables.
type View struct {
	path  string
	f     *os.File // held open for the life of the process
	data  []byte   // the whole mapped image, never unmapped
	order binary.ByteOrder
	class byte

	strtab  []byte
	symtab  []byte
	symSize int
}

// Open maps the ELF image at path and locates its tables.
//
// When path cannot be opened and is not absolute, /proc/self/exe is tried
// instead: the main program frequently appears under a relative argv[0].
//
// Among the section headers, the last section of type STRTAB (in header
// order) becomes the string table and the last of type SYMTAB the symbol
// table. Both must be present and the symbol table's entry size must equal
// the class's symbol-record size.
func Open(path string) (*View, error) {
	f, err := os.Open(path)
	if err != nil && !strings.HasPrefix(path, "/") {
		f, err = os.Open("/proc/self/exe")
	}
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}
	size := st.Size()
	if size < 16 {
		f.Close()
		return nil, &OpenError{Path: path, Err: ErrNotELF}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}

	v := &View{path: path, f: f, data: data}
	if err := v.parse(); err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}
	return v, nil
}

// parse validates the identification header and walks the section headers.
func (v *View) parse() error {
	if !bytes.Equal(v.data[:4], []byte{0x7f, 'E', 'L', 'F'}) {
		return ErrNotELF
	}

	switch v.data[eiData] {
	case elfDataLSB:
		v.order = binary.LittleEndian
	case elfDataMSB:
		v.order = binary.BigEndian
	default:
		return ErrBadEncoding
	}

	v.class = v.data[eiClass]
	var shoff, shentsize, shnum uint64
	switch v.class {
	case elfClass32:
		v.symSize = sym32Size
		off, err := v.u32(32)
		if err != nil {
			return err
		}
		shoff = uint64(off)
		ent, err := v.u16(46)
		if err != nil {
			return err
		}
		num, err := v.u16(48)
		if err != nil {
			return err
		}
		shentsize, shnum = uint64(ent), uint64(num)
	case elfClass64:
		v.symSize = sym64Size
		off, err := v.u64(40)
		if err != nil {
			return err
		}
		shoff = off
		ent, err := v.u16(58)
		if err != nil {
			return err
		}
		num, err := v.u16(60)
		if err != nil {
			return err
		}
		shentsize, shnum = uint64(ent), uint64(num)
	default:
		return ErrBadClass
	}

	var symEntSize uint64
	for i := uint64(0); i < shnum; i++ {
		sh := shoff + i*shentsize
		typ, err := v.u32(sh + 4)
		if err != nil {
			return err
		}
		if typ != shtStrtab && typ != shtSymtab {
			continue
		}

		var off, size, entsize uint64
		if v.class == elfClass32 {
			o, err := v.u32(sh + 16)
			if err != nil {
				return err
			}
			s, err := v.u32(sh + 20)
			if err != nil {
				return err
			}
			e, err := v.u32(sh + 36)
			if err != nil {
				return err
			}
			off, size, entsize = uint64(o), uint64(s), uint64(e)
		} else {
			var err error
			if off, err = v.u64(sh + 24); err != nil {
				return err
			}
			if size, err = v.u64(sh + 32); err != nil {
				return err
			}
			if entsize, err = v.u64(sh + 56); err != nil {
				return err
			}
		}

		sec, err := v.slice(off, size)
		if err != nil {
			return err
		}
		if typ == shtStrtab {
			// Last string table wins.
			v.strtab = sec
		} else {
			v.symtab = sec
			symEntSize = entsize
		}
	}

	if v.strtab == nil {
		return ErrNoStrtab
	}
	if v.symtab == nil {
		return ErrNoSymtab
	}
	if symEntSize != uint64(v.symSize) {
		return ErrSymEntSize
	}
	return nil
}

// u16 reads a 16-bit field at off with bounds checking.
func (v *View) u16(off uint64) (uint16, error) {
	if off+2 > uint64(len(v.data)) {
		return 0, ErrTruncated
	}
	return v.order.Uint16(v.data[off:]), nil
}

// u32 reads a 32-bit field at off with bounds checking.
func (v *View) u32(off uint64) (uint32, error) {
	if off+4 > uint64(len(v.data)) {
		return 0, ErrTruncated
	}
	return v.order.Uint32(v.data[off:]), nil
}

// u64 reads a 64-bit field at off with bounds checking.
func (v *View) u64(off uint64) (uint64, error) {
	if off+8 > uint64(len(v.data)) {
		return 0, ErrTruncated
	}
	return v.order.Uint64(v.data[off:]), nil
}

// slice returns the byte range [off, off+size) of the image.
func (v *View) slice(off, size uint64) ([]byte, error) {
	if off+size < off || off+size > uint64(len(v.data)) {
		return nil, ErrTruncated
	}
	return v.data[conv.Uint64ToInt(off):conv.Uint64ToInt(off+size)], nil
}

// Path returns the path the view was opened from.
func (v *View) Path() string { return v.path }

// Is64 reports whether the image is ELFCLASS64.
func (v *View) Is64() bool { return v.class == elfClass64 }

// NumSymbols returns the number of records in the symbol table.
func (v *View) NumSymbols() int {
	return len(v.symtab) / v.symSize
}

// Symbol returns symbol record i. i must be in [0, NumSymbols()).
func (v *View) Symbol(i int) Sym {
	rec := v.symtab[i*v.symSize : (i+1)*v.symSize]
	if v.class == elfClass32 {
		return Sym{
			NameOff: v.order.Uint32(rec[0:]),
			Value:   uint64(v.order.Uint32(rec[4:])),
		}
	}
	return Sym{
		NameOff: v.order.Uint32(rec[0:]),
		Value:   v.order.Uint64(rec[8:]),
	}
}

// NameAt returns the NUL-terminated string at off in the string table.
// The second result is false when off falls outside the table.
func (v *View) NameAt(off uint32) (string, bool) {
	if int64(off) >= int64(len(v.strtab)) {
		return "", false
	}
	s := v.strtab[off:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s), true
}
