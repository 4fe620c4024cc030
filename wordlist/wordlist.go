// Package wordlist implements a fixed-list basename matcher.
//
// A list is built once from a colon-separated string of names and consulted
// on the hot path for every traced call, so matching must reject non-members
// cheaply. Matching is a three-stage check:
//  1. Length comparison
//  2. Additive byte-hash comparison
//  3. Full byte-for-byte comparison
//
// The hash is a necessary-not-sufficient prefilter: two names only reach the
// byte comparison when both their lengths and hashes agree.
//
// Example:
//
//	list := wordlist.Build("libc.so:libm.so")
//	name, ok := list.Match("/usr/lib/libm.so")
//	// ok == true, name == "libm.so"
package wordlist

import "strings"

// Entry is a single name in a list.
//
// Entries form a singly linked sequence; a list is never mutated after Build
// and lives for the whole process.
type Entry struct {
	word string
	hash uint32
	next *Entry
}

// List is the head of a linked sequence of entries.
//
// The zero value of *List (nil) is the empty list and matches nothing.
type List struct {
	head *Entry
}

// hashOf returns the additive byte hash of s.
//
// Collisions are expected and harmless; the hash only gates the full byte
// comparison in Match.
func hashOf(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h += uint32(s[i])
	}
	return h
}

// Build parses a colon-separated string into a list, one entry per segment.
//
// An empty input produces a nil list. Empty segments (as in "a::b") produce
// zero-length entries, which can only match an empty basename.
func Build(words string) *List {
	if words == "" {
		return nil
	}

	var head, tail *Entry
	for _, seg := range strings.Split(words, ":") {
		e := &Entry{word: seg, hash: hashOf(seg)}
		if tail == nil {
			head = e
		} else {
			tail.next = e
		}
		tail = e
	}

	return &List{head: head}
}

// Basename returns the path component after the last '/' of path, or path
// itself when it contains no '/'.
func Basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Match tests whether the basename of path is one of the list's words.
//
// On success it returns the matched basename (a substring of path) and true.
// A nil list matches nothing.
func (l *List) Match(path string) (string, bool) {
	if l == nil {
		return "", false
	}

	base := Basename(path)
	h := hashOf(base)
	for e := l.head; e != nil; e = e.next {
		if len(e.word) != len(base) || e.hash != h {
			continue
		}
		if e.word == base {
			return base, true
		}
	}
	return "", false
}

// Len returns the number of entries in the list.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	n := 0
	for e := l.head; e != nil; e = e.next {
		n++
	}
	return n
}
