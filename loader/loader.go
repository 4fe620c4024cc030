// Package loader answers the question "which loaded object defines this
// instruction pointer".
//
// The production implementation reads /proc/self/maps: each executable
// file-backed mapping becomes a region, and an object's load base is the
// lowest start address among its mappings. The parsed regions are cached;
// the file is re-read only when an address falls outside every known region,
// which happens after a later dlopen.
//
// Resolution of the address to a symbol name is not this package's job: a
// query may carry a pre-resolved name when the source has one, but the maps
// file never does. The resolve package falls back to the object's own symbol
// table in that case.
package loader

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// Info describes the object defining a queried address.
type Info struct {
	// Path is the object's filename as the loader reports it. It is the
	// identity under which the resolver caches the object's ELF view.
	Path string

	// Base is the object's load base.
	Base uintptr

	// SymName and SymAddr are the nearest preceding symbol, when the source
	// of the query already knows it. Empty SymName means unknown.
	SymName string
	SymAddr uintptr
}

// Loader locates the defining object of an instruction pointer.
type Loader interface {
	// Query returns the defining object of pc, or false when no loaded
	// object covers it.
	Query(pc uintptr) (Info, bool)
}

// region is one file-backed executable mapping.
type region struct {
	start, end uintptr
	path       string
}

// ProcLoader is the /proc/self/maps implementation of Loader.
//
// Not safe for concurrent use; the tracer runs it inline on the calling
// thread.
type ProcLoader struct {
	mapsPath string
	regions  []region
	base     map[string]uintptr
}

// New returns a loader reading /proc/self/maps.
func New() *ProcLoader {
	return &ProcLoader{mapsPath: "/proc/self/maps"}
}

// Query implements Loader.
func (l *ProcLoader) Query(pc uintptr) (Info, bool) {
	if info, ok := l.find(pc); ok {
		return info, true
	}
	if err := l.refresh(); err != nil {
		return Info{}, false
	}
	return l.find(pc)
}

func (l *ProcLoader) find(pc uintptr) (Info, bool) {
	for _, r := range l.regions {
		if pc >= r.start && pc < r.end {
			return Info{Path: r.path, Base: l.base[r.path]}, true
		}
	}
	return Info{}, false
}

// refresh re-reads the maps file and rebuilds the region cache.
func (l *ProcLoader) refresh() error {
	f, err := os.Open(l.mapsPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var regions []region
	base := make(map[string]uintptr)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		// start-end perms offset dev inode pathname
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 || !strings.HasPrefix(fields[5], "/") {
			continue
		}
		lo, hi, ok := parseRange(fields[0])
		if !ok {
			continue
		}
		path := fields[5]
		if b, seen := base[path]; !seen || lo < b {
			base[path] = lo
		}
		// Only executable mappings can contain instruction pointers.
		if !strings.Contains(fields[1], "x") {
			continue
		}
		regions = append(regions, region{start: lo, end: hi, path: path})
	}
	if err := sc.Err(); err != nil {
		return err
	}

	l.regions = regions
	l.base = base
	return nil
}

// parseRange splits a "start-end" hex pair.
func parseRange(s string) (uintptr, uintptr, bool) {
	dash := strings.IndexByte(s, '-')
	if dash < 0 {
		return 0, 0, false
	}
	lo, err := strconv.ParseUint(s[:dash], 16, 64)
	if err != nil {
		return 0, 0, false
	}
	hi, err := strconv.ParseUint(s[dash+1:], 16, 64)
	if err != nil {
		return 0, 0, false
	}
	return uintptr(lo), uintptr(hi), true
}
