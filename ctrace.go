// Package ctrace provides an in-process function-call tracer for natively
// instrumented programs.
//
// Programs compiled with instrumentation hooks at every function entry and
// exit drive the two hook entry points, OnEnter and OnExit. The tracer
// resolves the hooked addresses to function names by reading the ELF images
// of the loaded objects, filters them by shared-object basename and by
// function-name pattern, and emits one line per admitted event:
//
//	ENTER[0] tgt:main()
//	ENTER[1] tgt:foo()
//	LEAVE[1] tgt:foo()
//	LEAVE[0] tgt:main()
//
// Configuration comes from the process environment under the CTRACE prefix
// (CTRACE_INFUNS, CTRACE_MAXDEPTH, CTRACE_ASYNC, ...); see the config
// package for the full set. A typical embedding installs the default tracer
// before main runs and shuts it down at exit:
//
//	func init() { ctrace.Install() }
//	...
//	defer ctrace.Shutdown()
//
// The tracer is not thread-safe by contract: process-wide state is mutated
// without locking, and output from a multithreaded target may interleave.
// CTRACE_LOG_TID helps untangle such output manually.
package ctrace

import (
	"github.com/coregx/ctrace/config"
	"github.com/coregx/ctrace/sink"
	"github.com/coregx/ctrace/trace"
)

// EnvPrefix is the brand prefix of all configuration variables.
const EnvPrefix = "CTRACE"

// Tracer is an independent tracing engine instance.
//
// Most programs use the package-level default installed by Install; separate
// instances exist for embedding and tests.
type Tracer struct {
	engine *trace.Engine
}

// New builds a tracer from an explicit configuration snapshot.
func New(cfg config.Config, opts trace.Options) *Tracer {
	return &Tracer{engine: trace.New(cfg, opts)}
}

// OnEnter is the function-entry hook: self is the instrumented function's
// own address, callsite the address it was called from.
func (t *Tracer) OnEnter(self, callsite uintptr) { t.engine.Enter(self, callsite) }

// OnExit is the function-exit hook.
func (t *Tracer) OnExit(self, callsite uintptr) { t.engine.Leave(self, callsite) }

// Close performs the exit-time work: in async mode it emits the deferred
// symbol table.
func (t *Tracer) Close() error { return t.engine.Close() }

// Enabled reports whether the tracer currently reacts to the hooks.
func (t *Tracer) Enabled() bool { return t.engine.Enabled() }

// Depth returns the number of currently-active admitted frames.
func (t *Tracer) Depth() int { return t.engine.Depth() }

// def is the default tracer driven by the package-level hook functions.
var def *Tracer

// Install reads the environment and installs the default tracer with the
// standard-error sink. It returns the tracer so embedders can also hold it
// directly.
func Install() *Tracer {
	return InstallWithOptions(trace.Options{})
}

// InstallWithOptions is Install with construction-time overrides, for
// embedders that route output through a logging facility or supply their
// own loader:
//
//	ctrace.InstallWithOptions(trace.Options{Sink: sink.NewLogging("tgt")})
func InstallWithOptions(opts trace.Options) *Tracer {
	cfg, warns := config.FromEnv(EnvPrefix)
	if opts.Sink == nil {
		opts.Sink = &sink.Stderr{}
	}
	for _, w := range warns {
		opts.Sink.Diag("%s", w)
	}
	def = New(cfg, opts)
	return def
}

// OnEnter drives the default tracer's entry hook. It is a no-op until
// Install has run.
func OnEnter(self, callsite uintptr) {
	if def != nil {
		def.OnEnter(self, callsite)
	}
}

// OnExit drives the default tracer's exit hook.
func OnExit(self, callsite uintptr) {
	if def != nil {
		def.OnExit(self, callsite)
	}
}

// Shutdown closes the default tracer. In async mode this is where the
// SYMTAB block appears; forgetting it loses the deferred resolution.
func Shutdown() error {
	if def == nil {
		return nil
	}
	return def.Close()
}
