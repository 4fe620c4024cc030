// Package filter decides which calls the tracer reports.
//
// Two policies exist, both tri-state: report everything, whitelist, or
// blacklist. The library policy matches DSO basenames against a word list;
// the function policy matches function names against an extended-glob
// pattern. Each policy resolves its state lazily on first use from the raw
// configuration strings and is immutable afterwards. When both an include
// and an exclude list are configured, the include list wins.
package filter

import (
	"github.com/coregx/ctrace/eglob"
	"github.com/coregx/ctrace/wordlist"
)

type mode int

const (
	modeUnresolved mode = iota
	modeAll
	modeInclude
	modeExclude
)

// Libs is the library policy: admit or suppress a call by the basename of
// its defining shared object.
type Libs struct {
	include string
	exclude string

	mode mode
	list *wordlist.List
}

// NewLibs builds a library policy from the raw include/exclude lists.
// The word list itself is built on first Admit call.
func NewLibs(include, exclude string) *Libs {
	return &Libs{include: include, exclude: exclude}
}

func (f *Libs) resolve() {
	switch {
	case f.include != "":
		f.mode, f.list = modeInclude, wordlist.Build(f.include)
	case f.exclude != "":
		f.mode, f.list = modeExclude, wordlist.Build(f.exclude)
	default:
		f.mode = modeAll
	}
}

// Admit reports whether a call defined in the object at path should be
// reported.
func (f *Libs) Admit(path string) bool {
	if f.mode == modeUnresolved {
		f.resolve()
	}
	switch f.mode {
	case modeInclude:
		_, ok := f.list.Match(path)
		return ok
	case modeExclude:
		_, ok := f.list.Match(path)
		return !ok
	default:
		return true
	}
}

// Funs is the function policy: admit or suppress a call by its resolved
// function name.
type Funs struct {
	include string
	exclude string

	mode mode
	pat  *eglob.Pattern
}

// NewFuns builds a function policy from the raw include/exclude patterns.
// The pattern is compiled on first Admit call.
func NewFuns(include, exclude string) *Funs {
	return &Funs{include: include, exclude: exclude}
}

func (f *Funs) resolve() {
	switch {
	case f.include != "":
		f.mode, f.pat = modeInclude, eglob.Compile(f.include)
	case f.exclude != "":
		f.mode, f.pat = modeExclude, eglob.Compile(f.exclude)
	default:
		f.mode = modeAll
	}
}

// Admit reports whether a call resolving to name should be reported.
//
// resolved is false when name resolution failed entirely. An unresolvable
// name cannot satisfy a whitelist, but a blacklist has nothing to hold
// against it and admits it.
func (f *Funs) Admit(name string, resolved bool) bool {
	if f.mode == modeUnresolved {
		f.resolve()
	}
	switch f.mode {
	case modeInclude:
		return resolved && f.pat.Match(name)
	case modeExclude:
		return !resolved || !f.pat.Match(name)
	default:
		return true
	}
}
