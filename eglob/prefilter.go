package eglob

import (
	"github.com/coregx/ahocorasick"
)

// minLiteralLen is the minimum length of a literal fragment worth
// prefiltering on. Shorter fragments have too many false positives.
const minLiteralLen = 2

// Prefilter rejects names that cannot match any alternative of a pattern.
//
// It holds an Aho-Corasick automaton over one literal fragment per top-level
// alternative. A name that contains none of the fragments cannot match any
// alternative, so the recursive matcher can be skipped entirely. A name that
// does contain one is only a candidate and must still be verified.
//
// Effectiveness is tracked: when too many candidates fail verification the
// prefilter disables itself for the rest of the process.
type Prefilter struct {
	auto *ahocorasick.Automaton

	// Statistics
	candidates uint64 // Names that passed the automaton
	confirms   uint64 // Names that went on to fully match

	// Configuration
	checkInterval  uint64  // Check effectiveness every N candidates
	minEfficiency  float64 // Minimum required confirms/candidates ratio
	warmupPeriod   uint64  // Don't disable until this many candidates
	lastCheckpoint uint64  // Candidates at last checkpoint

	active bool
}

// buildPrefilter extracts one literal fragment per alternative and builds the
// automaton over them.
//
// Returns nil when any alternative lacks a usable fragment: a fragment is a
// run of non-special bytes at grouping depth zero of the alternative, at
// least minLiteralLen long. Without one the automaton would not be a
// necessary condition and could reject matching names.
func buildPrefilter(alts []string) *Prefilter {
	builder := ahocorasick.NewBuilder()
	for _, alt := range alts {
		lit := longestLiteral(alt)
		if len(lit) < minLiteralLen {
			return nil
		}
		builder.AddPattern([]byte(lit))
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &Prefilter{
		auto:          auto,
		checkInterval: 64,
		minEfficiency: 0.1,
		warmupPeriod:  128,
		active:        true,
	}
}

// longestLiteral returns the longest run of literal bytes at depth zero of a
// single alternative. The scan stops at the alternative's own ':' or at the
// ')' closing an enclosing group; bytes inside nested groups are skipped
// because group branches make them optional.
func longestLiteral(alt string) string {
	var best string
	start := -1
	depth := 0
	flush := func(end int) {
		if start >= 0 && end-start > len(best) {
			best = alt[start:end]
		}
		start = -1
	}
	for i := 0; i < len(alt); i++ {
		switch alt[i] {
		case '(':
			flush(i)
			depth++
		case ')':
			if depth == 0 {
				flush(i)
				return best
			}
			depth--
		case ':':
			if depth == 0 {
				flush(i)
				return best
			}
		case '*', '?':
			if depth == 0 {
				flush(i)
			}
		default:
			if depth == 0 && start < 0 {
				start = i
			}
		}
	}
	flush(len(alt))
	return best
}

// Active reports whether the prefilter is still in use.
func (p *Prefilter) Active() bool { return p.active }

// Candidate reports whether name contains at least one fragment and so might
// match. It also updates the effectiveness statistics.
func (p *Prefilter) Candidate(name string) bool {
	if !p.auto.IsMatch([]byte(name)) {
		return false
	}

	p.candidates++
	if p.candidates >= p.warmupPeriod && p.candidates-p.lastCheckpoint >= p.checkInterval {
		p.lastCheckpoint = p.candidates
		eff := float64(p.confirms) / float64(p.candidates)
		if eff < p.minEfficiency {
			// Too many false positives: the automaton costs more than the
			// recursion it saves. Once disabled, never re-enabled.
			p.active = false
		}
	}
	return true
}

// ConfirmMatch records that the most recent candidate fully matched.
func (p *Prefilter) ConfirmMatch() { p.confirms++ }
