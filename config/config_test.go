package config

import (
	"testing"

	"golang.org/x/sys/unix"
)

// TestDefaults tests the snapshot taken from an empty environment.
func TestDefaults(t *testing.T) {
	cfg, warns := FromEnv("CFGTEST0")
	if len(warns) != 0 {
		t.Errorf("expected no warnings, got %v", warns)
	}
	if cfg.Signal != 0 {
		t.Errorf("expected no toggle signal, got %d", cfg.Signal)
	}
	if cfg.MaxDepth != 0 || cfg.Async || cfg.EntriesOnly || cfg.LogTime || cfg.LogTID {
		t.Errorf("expected zero defaults, got %+v", cfg)
	}
	if !cfg.LogFname {
		t.Error("expected LogFname to default to true")
	}
	if cfg.Indent != 0 {
		t.Errorf("expected Indent 0, got %d", cfg.Indent)
	}
}

// TestStrictBooleans tests that the strict options require the literal "1".
func TestStrictBooleans(t *testing.T) {
	t.Setenv("CFGTEST1_ASYNC", "true")
	t.Setenv("CFGTEST1_LOG_TIME", "yes")
	t.Setenv("CFGTEST1_LOG_TID", "1")
	t.Setenv("CFGTEST1_LOG_ENTRIES_ONLY", "2")

	cfg, _ := FromEnv("CFGTEST1")
	if cfg.Async {
		t.Error(`expected ASYNC="true" to stay off`)
	}
	if cfg.LogTime {
		t.Error(`expected LOG_TIME="yes" to stay off`)
	}
	if !cfg.LogTID {
		t.Error(`expected LOG_TID="1" to turn on`)
	}
	if cfg.EntriesOnly {
		t.Error(`expected LOG_ENTRIES_ONLY="2" to stay off`)
	}
}

// TestLogFnameFirstByte tests the first-byte rule for LOG_FNAME.
func TestLogFnameFirstByte(t *testing.T) {
	tests := []struct {
		val  string
		want bool
	}{
		{"0", false},
		{"00", false},
		{"1", true},
		{"yes", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Setenv("CFGTEST2_LOG_FNAME", tt.val)
		cfg, _ := FromEnv("CFGTEST2")
		if cfg.LogFname != tt.want {
			t.Errorf("LOG_FNAME=%q: expected %v, got %v", tt.val, tt.want, cfg.LogFname)
		}
	}
}

// TestSignalTrigger tests the y/Y shortcut, numeric parse, and the
// non-positive diagnostic.
func TestSignalTrigger(t *testing.T) {
	t.Setenv("CFGTEST3_SIGNAL", "y")
	cfg, warns := FromEnv("CFGTEST3")
	if cfg.Signal != int(unix.SIGPROF) {
		t.Errorf(`expected SIGNAL="y" to select SIGPROF, got %d`, cfg.Signal)
	}
	if len(warns) != 0 {
		t.Errorf("expected no warnings, got %v", warns)
	}

	t.Setenv("CFGTEST3_SIGNAL", "Yes")
	cfg, _ = FromEnv("CFGTEST3")
	if cfg.Signal != int(unix.SIGPROF) {
		t.Errorf(`expected SIGNAL="Yes" to select SIGPROF, got %d`, cfg.Signal)
	}

	t.Setenv("CFGTEST3_SIGNAL", "10")
	cfg, _ = FromEnv("CFGTEST3")
	if cfg.Signal != 10 {
		t.Errorf("expected signal 10, got %d", cfg.Signal)
	}

	t.Setenv("CFGTEST3_SIGNAL", "-5")
	cfg, warns = FromEnv("CFGTEST3")
	if cfg.Signal != 0 {
		t.Errorf("expected non-positive signal to disable the trigger, got %d", cfg.Signal)
	}
	if len(warns) != 1 {
		t.Errorf("expected one warning, got %v", warns)
	}
}

// TestMaxDepthParsing tests permissive integer parsing with invalid values
// behaving as unlimited.
func TestMaxDepthParsing(t *testing.T) {
	tests := []struct {
		val  string
		want int
	}{
		{"3", 3},
		{"12junk", 12},
		{"junk", 0},
		{"-4", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Setenv("CFGTEST4_MAXDEPTH", tt.val)
		cfg, _ := FromEnv("CFGTEST4")
		if cfg.MaxDepth != tt.want {
			t.Errorf("MAXDEPTH=%q: expected %d, got %d", tt.val, tt.want, cfg.MaxDepth)
		}
	}
}

// TestFilterListsPassedThrough tests that the filter variables arrive
// verbatim; precedence is the filter package's concern.
func TestFilterListsPassedThrough(t *testing.T) {
	t.Setenv("CFGTEST5_INLIBS", "libc.so:libm.so")
	t.Setenv("CFGTEST5_EXLIBS", "libdl.so")
	t.Setenv("CFGTEST5_INFUNS", "foo_*")
	t.Setenv("CFGTEST5_EXFUNS", "bar_(a:b)")

	cfg, _ := FromEnv("CFGTEST5")
	if cfg.IncludeLibs != "libc.so:libm.so" || cfg.ExcludeLibs != "libdl.so" {
		t.Errorf("library lists not passed through: %+v", cfg)
	}
	if cfg.IncludeFuns != "foo_*" || cfg.ExcludeFuns != "bar_(a:b)" {
		t.Errorf("function patterns not passed through: %+v", cfg)
	}
}
