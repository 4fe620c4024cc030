// Package eglob implements an extended shell-style glob matcher.
//
// The pattern grammar extends plain globbing with alternation and grouping:
//   - '*' matches any (possibly empty) run of characters
//   - '?' matches exactly one character
//   - ':' separates alternatives at the current grouping depth
//   - '(' and ')' delimit a sub-pattern that is itself an alternation list
//
// The full subject string must match from start to end; within a group, any
// branch succeeding is a success.
//
// Example:
//
//	eglob.Match("foo_*:bar_(alpha:beta)", "bar_alpha") // true
//	eglob.Match("foo_*:bar_(alpha:beta)", "bar_gamma") // false
//
// For repeated matching of the same pattern, Compile pre-splits the top-level
// alternatives once and attaches a literal prefilter; see Pattern.
package eglob

// Match reports whether name matches pattern.
//
// Each top-level alternative of the pattern (split by ':' at grouping depth
// zero) is tried in order; the first one to match wins.
func Match(pattern, name string) bool {
	alt := pattern
	for {
		if matchGlob(alt, name) {
			return true
		}
		next, ok := findEndOfGlob(alt, ':')
		if !ok {
			return false
		}
		alt = next
	}
}

// matchGlob matches name against a single alternative of pat.
//
// pat extends to the end of the full pattern text; a ':' at depth zero ends
// the current alternative (the remainder after the enclosing group continues
// to apply), and a ')' closes a group opened by a caller.
func matchGlob(pat, name string) bool {
	for {
		if len(pat) == 0 {
			return len(name) == 0
		}
		switch c := pat[0]; c {
		case '(':
			// Try each branch of the group. A branch pattern runs through
			// the group's ')' into the rest of the full pattern, so a
			// successful recursion is a complete match.
			branch := pat[1:]
			for {
				if matchGlob(branch, name) {
					return true
				}
				next, ok := findEndOfGlob(branch, ':')
				if !ok {
					return false
				}
				branch = next
			}
		case ')':
			// Current branch of the enclosing group is satisfied up to its
			// close; continue with the rest of the pattern.
			pat = pat[1:]
		case ':':
			// This branch's own text is exhausted; the subject must be
			// matched by whatever follows the enclosing group.
			rest, ok := findEndOfGlob(pat[1:], ')')
			if !ok {
				// No enclosing group: the whole pattern is satisfied.
				return len(name) == 0
			}
			pat = rest
		case '*':
			rest := pat[1:]
			for i := 0; ; i++ {
				if matchGlob(rest, name[i:]) {
					return true
				}
				if i == len(name) {
					return false
				}
			}
		case '?':
			if len(name) == 0 {
				return false
			}
			pat, name = pat[1:], name[1:]
		default:
			if len(name) == 0 || name[0] != c {
				return false
			}
			pat, name = pat[1:], name[1:]
		}
	}
}

// findEndOfGlob scans s for the first occurrence of c at grouping depth zero
// and returns the remainder of s after it.
//
// A ')' at depth zero terminates the scan: it either is the wanted character
// or proves that c does not occur in the current group.
func findEndOfGlob(s string, c byte) (string, bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				if c == ')' {
					return s[i+1:], true
				}
				return "", false
			}
			depth--
		case c:
			if depth == 0 {
				return s[i+1:], true
			}
		}
	}
	return "", false
}
