package trace

import (
	"encoding/binary"
	"io"
	"os"
	"strconv"
	"unsafe"

	"github.com/coregx/ctrace/resolve"
)

// ptrSize is the size of one backlog record: a raw machine pointer.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// backlog is the async-mode scratch file of raw instruction pointers.
//
// The file is created with a unique name and immediately unlinked, so it
// vanishes with the process; the descriptor is the only handle. Records are
// native-endian pointer-sized values, appended on every ENTER and read back
// once at exit.
type backlog struct {
	f *os.File
}

// openBacklog creates the unlinked scratch file under the temporary
// directory.
func openBacklog() (*backlog, error) {
	f, err := os.CreateTemp("", "ctrace-*")
	if err != nil {
		return nil, err
	}
	os.Remove(f.Name())
	return &backlog{f: f}, nil
}

// log appends one raw address record.
func (b *backlog) log(pc uintptr) error {
	var buf [8]byte
	if ptrSize == 4 {
		binary.NativeEndian.PutUint32(buf[:4], uint32(pc))
	} else {
		binary.NativeEndian.PutUint64(buf[:], uint64(pc))
	}
	_, err := b.f.Write(buf[:ptrSize])
	return err
}

// rewind seeks back to the first record.
func (b *backlog) rewind() error {
	_, err := b.f.Seek(0, io.SeekStart)
	return err
}

// next reads one record. io.EOF signals the end of the backlog.
func (b *backlog) next() (uintptr, error) {
	var buf [8]byte
	if _, err := io.ReadFull(b.f, buf[:ptrSize]); err != nil {
		return 0, err
	}
	if ptrSize == 4 {
		return uintptr(binary.NativeEndian.Uint32(buf[:4])), nil
	}
	return uintptr(binary.NativeEndian.Uint64(buf[:])), nil
}

func (b *backlog) close() error {
	return b.f.Close()
}

// emitSymtab performs the deferred resolution: one SYMTAB: header, then one
// line per backlog record. Records suppressed by the filters emit nothing;
// duplicates are left as they are, the post-processor tolerates them.
func (e *Engine) emitSymtab() error {
	e.out.Emit("SYMTAB:")
	if err := e.backlog.rewind(); err != nil {
		return err
	}
	for {
		pc, err := e.backlog.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		res := e.res.Resolve(pc)
		if res.Kind == resolve.Suppressed {
			continue
		}

		buf := appendAddrBare(make([]byte, 0, 64), pc)
		buf = append(buf, ' ', '=', ' ')
		if res.DSO != "" {
			buf = append(buf, res.DSO...)
			buf = append(buf, ':')
		}
		if res.Kind == resolve.FullName {
			buf = append(buf, res.Func...)
			buf = append(buf, '(', ')')
		} else {
			buf = appendAddr(buf, pc)
		}
		e.out.Emit(string(buf))
	}
}

// appendAddrBare renders an address as 0xHEX without brackets.
func appendAddrBare(buf []byte, pc uintptr) []byte {
	buf = append(buf, '0', 'x')
	return strconv.AppendUint(buf, uint64(pc), 16)
}
