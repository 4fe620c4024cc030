package eglob

// Pattern is a compiled extended-glob pattern.
//
// Compilation pre-splits the top-level alternatives once and, when every
// alternative contains a usable literal fragment, attaches an Aho-Corasick
// prefilter that rejects non-matching names without running the recursive
// matcher. The prefilter is wrapped in an effectiveness tracker and disables
// itself when it stops paying for itself.
//
// A Pattern is built once and then consulted on every traced call; it is not
// mutated afterwards except for the tracker's counters.
type Pattern struct {
	raw string

	// alts holds one slice per top-level alternative. Each slice begins at
	// the alternative and extends to the end of the pattern text, which is
	// what matchGlob expects.
	alts []string

	pre *Prefilter
}

// Compile builds a Pattern from an extended-glob pattern string.
func Compile(pattern string) *Pattern {
	p := &Pattern{raw: pattern}

	alt := pattern
	for {
		p.alts = append(p.alts, alt)
		next, ok := findEndOfGlob(alt, ':')
		if !ok {
			break
		}
		alt = next
	}

	p.pre = buildPrefilter(p.alts)
	return p
}

// String returns the original pattern text.
func (p *Pattern) String() string { return p.raw }

// Match reports whether name matches the pattern.
func (p *Pattern) Match(name string) bool {
	if p.pre != nil && p.pre.Active() {
		if !p.pre.Candidate(name) {
			return false
		}
		for _, alt := range p.alts {
			if matchGlob(alt, name) {
				p.pre.ConfirmMatch()
				return true
			}
		}
		return false
	}

	for _, alt := range p.alts {
		if matchGlob(alt, name) {
			return true
		}
	}
	return false
}
