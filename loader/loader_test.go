package loader

import (
	"os"
	"path/filepath"
	"testing"
)

const fakeMaps = `00400000-00401000 r-xp 00000000 08:01 123 /usr/bin/tgt
00401000-00402000 r--p 00001000 08:01 123 /usr/bin/tgt
7f0000000000-7f0000010000 r--p 00000000 08:01 456 /usr/lib/libm.so
7f0000010000-7f0000020000 r-xp 00010000 08:01 456 /usr/lib/libm.so
7f1000000000-7f1000001000 rw-p 00000000 00:00 0
7f2000000000-7f2000001000 r-xp 00000000 00:00 0 [vdso]
`

func fakeLoader(t *testing.T, contents string) *ProcLoader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "maps")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return &ProcLoader{mapsPath: path}
}

// TestQueryExecutable tests that a pc inside the main executable's text
// resolves to its path with the lowest mapping as the base.
func TestQueryExecutable(t *testing.T) {
	l := fakeLoader(t, fakeMaps)

	info, ok := l.Query(0x400800)
	if !ok {
		t.Fatal("expected a hit for a mapped pc")
	}
	if info.Path != "/usr/bin/tgt" {
		t.Errorf("expected /usr/bin/tgt, got %q", info.Path)
	}
	if info.Base != 0x400000 {
		t.Errorf("expected base 0x400000, got %#x", info.Base)
	}
}

// TestQueryLibraryBase tests that the base is the lowest mapping of the
// object even when the executable segment is mapped higher.
func TestQueryLibraryBase(t *testing.T) {
	l := fakeLoader(t, fakeMaps)

	info, ok := l.Query(0x7f0000010800)
	if !ok {
		t.Fatal("expected a hit inside the library text segment")
	}
	if info.Path != "/usr/lib/libm.so" {
		t.Errorf("expected libm.so, got %q", info.Path)
	}
	if info.Base != 0x7f0000000000 {
		t.Errorf("expected base of the lowest mapping, got %#x", info.Base)
	}
}

// TestQueryNonExecutable tests that data-only mappings do not claim a pc.
func TestQueryNonExecutable(t *testing.T) {
	l := fakeLoader(t, fakeMaps)

	if _, ok := l.Query(0x7f0000000800); ok {
		t.Error("expected a pc in a non-executable mapping to miss")
	}
}

// TestQueryAnonymous tests that anonymous and pseudo mappings are ignored.
func TestQueryAnonymous(t *testing.T) {
	l := fakeLoader(t, fakeMaps)

	if _, ok := l.Query(0x7f1000000800); ok {
		t.Error("expected an anonymous mapping to miss")
	}
	if _, ok := l.Query(0x7f2000000800); ok {
		t.Error("expected [vdso] to miss")
	}
}

// TestQueryMiss tests the miss path for an unmapped address.
func TestQueryMiss(t *testing.T) {
	l := fakeLoader(t, fakeMaps)

	if _, ok := l.Query(0xdead0000); ok {
		t.Error("expected an unmapped pc to miss")
	}
}

// TestQueryNoSymbol tests that the maps loader never pre-resolves a symbol.
func TestQueryNoSymbol(t *testing.T) {
	l := fakeLoader(t, fakeMaps)

	info, ok := l.Query(0x400800)
	if !ok {
		t.Fatal("expected a hit")
	}
	if info.SymName != "" {
		t.Errorf("expected no pre-resolved symbol, got %q", info.SymName)
	}
}

// TestRefreshPicksUpNewMappings tests that a pc outside all known regions
// triggers a re-read of the maps file.
func TestRefreshPicksUpNewMappings(t *testing.T) {
	l := fakeLoader(t, fakeMaps)
	if _, ok := l.Query(0x400800); !ok {
		t.Fatal("expected initial hit")
	}

	grown := fakeMaps + "7f3000000000-7f3000001000 r-xp 00000000 08:01 789 /usr/lib/libdl.so\n"
	if err := os.WriteFile(l.mapsPath, []byte(grown), 0o644); err != nil {
		t.Fatal(err)
	}

	info, ok := l.Query(0x7f3000000800)
	if !ok {
		t.Fatal("expected a hit after the mapping appeared")
	}
	if info.Path != "/usr/lib/libdl.so" {
		t.Errorf("expected libdl.so, got %q", info.Path)
	}
}
