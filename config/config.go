// Package config reads the tracing configuration from the process
// environment.
//
// Every option is an environment variable sharing one brand prefix (for
// example CTRACE_MAXDEPTH for prefix "CTRACE"). The environment is read
// exactly once per variable; changes made after the snapshot is taken have
// no effect. An absent or empty variable means its default.
//
// Example:
//
//	cfg, warns := config.FromEnv("CTRACE")
//	for _, w := range warns {
//	    // report through the log sink
//	}
package config

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Config is the immutable configuration snapshot.
//
// At most one of IncludeLibs/ExcludeLibs is meaningful, and likewise for
// IncludeFuns/ExcludeFuns: the include list wins when both are set. The
// filter package implements that precedence; Config only carries the raw
// values.
type Config struct {
	// Signal is the toggle signal number, or 0 when no signal trigger is
	// configured. When a trigger is configured, tracing starts disabled and
	// each delivery of the signal flips it.
	Signal int

	// IncludeLibs and ExcludeLibs are colon-separated lists of DSO
	// basenames.
	IncludeLibs string
	ExcludeLibs string

	// IncludeFuns and ExcludeFuns are extended-glob patterns over function
	// names.
	IncludeFuns string
	ExcludeFuns string

	// MaxDepth is the admitted-depth ceiling; 0 means unlimited. Calls at
	// or beyond the ceiling are silently omitted from the output but still
	// counted.
	MaxDepth int

	// Async defers symbol resolution to process exit: events carry raw
	// addresses and a SYMTAB block is emitted at the end.
	Async bool

	// EntriesOnly omits LEAVE lines.
	EntriesOnly bool

	// LogTime prefixes each line with seconds.microseconds.
	LogTime bool

	// LogTID prefixes each line with the calling thread id.
	LogTID bool

	// LogFname includes the DSO basename in each line. Default true.
	LogFname bool

	// Indent is the number of extra indent spaces per depth level.
	// Default 0: every name begins at a fixed column.
	Indent int
}

// FromEnv reads the configuration for the given brand prefix.
//
// Malformed values never fail the load: each produces a one-line warning and
// falls back to the item's default, per the contract that the tracer never
// aborts the target process.
func FromEnv(prefix string) (Config, []string) {
	var warns []string
	get := func(name string) string {
		return os.Getenv(prefix + "_" + name)
	}

	cfg := Config{
		IncludeLibs: get("INLIBS"),
		ExcludeLibs: get("EXLIBS"),
		IncludeFuns: get("INFUNS"),
		ExcludeFuns: get("EXFUNS"),
		Async:       get("ASYNC") == "1",
		EntriesOnly: get("LOG_ENTRIES_ONLY") == "1",
		LogTime:     get("LOG_TIME") == "1",
		LogTID:      get("LOG_TID") == "1",
		LogFname:    firstByteBool(get("LOG_FNAME"), true),
		MaxDepth:    positiveOrZero(atoi(get("MAXDEPTH"))),
		Indent:      positiveOrZero(atoi(get("LOG_INDENT"))),
	}

	if v := get("SIGNAL"); v != "" {
		if v[0] == 'y' || v[0] == 'Y' {
			cfg.Signal = int(unix.SIGPROF)
		} else if n := atoi(v); n > 0 {
			cfg.Signal = n
		} else {
			warns = append(warns, fmt.Sprintf("invalid toggle signal %q, trigger disabled", v))
		}
	}

	return cfg, warns
}

// firstByteBool interprets v by its first byte: unset or empty is def,
// a leading '0' is false, anything else is true.
func firstByteBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	return v[0] != '0'
}

// atoi parses a leading optional-sign digit run and ignores any trailing
// junk. No digits parse as 0.
func atoi(s string) int {
	i, neg := 0, false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}

// positiveOrZero clamps invalid (non-positive) values to the "unset" zero.
func positiveOrZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
