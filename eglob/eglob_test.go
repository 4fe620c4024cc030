package eglob

import "testing"

// TestMatchLiteral tests exact literal matching with full-string anchoring.
func TestMatchLiteral(t *testing.T) {
	if !Match("main", "main") {
		t.Error("expected literal pattern to match itself")
	}
	if Match("main", "mai") {
		t.Error("expected shorter name not to match")
	}
	if Match("main", "mainx") {
		t.Error("expected longer name not to match")
	}
	if Match("main", "xmain") {
		t.Error("expected prefixed name not to match")
	}
}

// TestMatchStar tests that '*' matches any run including the empty one.
func TestMatchStar(t *testing.T) {
	tests := []struct {
		pat, name string
		want      bool
	}{
		{"*", "", true},
		{"*", "anything", true},
		{"foo*", "foo", true},
		{"foo*", "foobar", true},
		{"foo*", "fo", false},
		{"*bar", "bar", true},
		{"*bar", "foobar", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "axxbyyc", true},
		{"a*b*c", "acb", false},
	}
	for _, tt := range tests {
		if got := Match(tt.pat, tt.name); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, expected %v", tt.pat, tt.name, got, tt.want)
		}
	}
}

// TestMatchQuestion tests that '?' consumes exactly one character and does
// not match end-of-string.
func TestMatchQuestion(t *testing.T) {
	if !Match("a?c", "abc") {
		t.Error("expected ? to match one character")
	}
	if Match("a?c", "ac") {
		t.Error("expected ? not to match the empty string")
	}
	if Match("a?", "a") {
		t.Error("expected ? not to match end-of-string")
	}
	if !Match("??", "ab") {
		t.Error("expected ?? to match a two-character name")
	}
}

// TestMatchAlternation tests top-level ':' alternation.
func TestMatchAlternation(t *testing.T) {
	for _, name := range []string{"a", "b"} {
		if !Match("a:b", name) {
			t.Errorf("expected a:b to match %q", name)
		}
	}
	for _, name := range []string{"ab", "c", ""} {
		if Match("a:b", name) {
			t.Errorf("expected a:b not to match %q", name)
		}
	}
}

// TestMatchGroups tests '(' ')' grouping with alternation inside.
func TestMatchGroups(t *testing.T) {
	tests := []struct {
		pat, name string
		want      bool
	}{
		{"a(b:c)d", "abd", true},
		{"a(b:c)d", "acd", true},
		{"a(b:c)d", "ad", false},
		{"a(b:c)d", "abcd", false},
		{"a(b:)c", "abc", true},
		{"a(b:)c", "ac", true},
		{"a(b:)c", "abbc", false},
		{"a(b(c:d)e:f)g", "abceg", true},
		{"a(b(c:d)e:f)g", "abdeg", true},
		{"a(b(c:d)e:f)g", "afg", true},
		{"a(b(c:d)e:f)g", "abfg", false},
	}
	for _, tt := range tests {
		if got := Match(tt.pat, tt.name); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, expected %v", tt.pat, tt.name, got, tt.want)
		}
	}
}

// TestMatchFunctionNames tests a realistic function-name whitelist pattern.
func TestMatchFunctionNames(t *testing.T) {
	pat := "foo_*:bar_(alpha:beta)"
	matching := []string{"foo_x", "foo_", "bar_alpha", "bar_beta"}
	nonMatching := []string{"foo", "bar_gamma", "baz_alpha"}

	for _, name := range matching {
		if !Match(pat, name) {
			t.Errorf("expected %q to match %q", name, pat)
		}
	}
	for _, name := range nonMatching {
		if Match(pat, name) {
			t.Errorf("expected %q not to match %q", name, pat)
		}
	}
}

// TestMatchEmptyPattern tests that the empty pattern matches only the empty
// name.
func TestMatchEmptyPattern(t *testing.T) {
	if !Match("", "") {
		t.Error("expected empty pattern to match empty name")
	}
	if Match("", "x") {
		t.Error("expected empty pattern not to match a non-empty name")
	}
}

// TestCompileMatchAgreement tests that the compiled form agrees with the
// one-shot matcher across a grid of patterns and names.
func TestCompileMatchAgreement(t *testing.T) {
	patterns := []string{
		"foo_*:bar_(alpha:beta)",
		"a(b:c)d",
		"*",
		"main:exit_*",
		"a?c*",
	}
	names := []string{
		"foo_x", "foo", "bar_alpha", "bar_gamma", "abd", "acd", "ad",
		"main", "exit_now", "abcxx", "", "axc",
	}
	for _, pat := range patterns {
		c := Compile(pat)
		for _, name := range names {
			if got, want := c.Match(name), Match(pat, name); got != want {
				t.Errorf("Compile(%q).Match(%q) = %v, one-shot Match = %v", pat, name, got, want)
			}
		}
	}
}

// TestPrefilterBuilt tests that a pattern whose alternatives all carry
// literal fragments gets a prefilter, and that one without does not.
func TestPrefilterBuilt(t *testing.T) {
	if Compile("foo_*:bar_(alpha:beta)").pre == nil {
		t.Error("expected prefilter for literal-bearing alternatives")
	}
	if Compile("foo_*:*").pre != nil {
		t.Error("expected no prefilter when an alternative has no literal")
	}
	if Compile("??:ab").pre != nil {
		t.Error("expected no prefilter when a fragment is too short")
	}
}

// TestPrefilterNecessary tests that the prefilter never rejects a name the
// matcher would accept.
func TestPrefilterNecessary(t *testing.T) {
	pat := "foo_*:bar_(alpha:beta):*_handler"
	c := Compile(pat)
	if c.pre == nil {
		t.Fatal("expected a prefilter")
	}
	for _, name := range []string{"foo_1", "bar_beta", "io_handler", "x_handler"} {
		if !Match(pat, name) {
			t.Fatalf("test setup: %q should match %q", name, pat)
		}
		if !c.Match(name) {
			t.Errorf("compiled pattern rejected matching name %q", name)
		}
	}
}

// TestPrefilterDisablesOnFalsePositives tests that a stream of candidates
// that never confirm disables the prefilter.
func TestPrefilterDisablesOnFalsePositives(t *testing.T) {
	c := Compile("prefix_(a:b)_suffix:prefix_?_mid")
	if c.pre == nil {
		t.Fatal("expected a prefilter")
	}
	// Names containing the fragment but never matching.
	for i := 0; i < 300; i++ {
		if c.Match("prefix_zzz") {
			t.Fatal("name should not match")
		}
	}
	if c.pre.Active() {
		t.Error("expected prefilter to disable itself after sustained false positives")
	}
}

// TestLongestLiteral tests fragment extraction from single alternatives.
func TestLongestLiteral(t *testing.T) {
	tests := []struct {
		alt  string
		want string
	}{
		{"foo_*", "foo_"},
		{"bar_(alpha:beta)", "bar_"},
		{"*", ""},
		{"a(bc)defg", "defg"},
		{"ab?cde", "cde"},
		{"ab:cdef", "ab"},
		{"ab)cd", "ab"},
	}
	for _, tt := range tests {
		if got := longestLiteral(tt.alt); got != tt.want {
			t.Errorf("longestLiteral(%q) = %q, expected %q", tt.alt, got, tt.want)
		}
	}
}
