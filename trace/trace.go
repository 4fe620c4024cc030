// Package trace implements the tracing engine driven by the instrumentation
// hooks.
//
// One Engine value owns all the state the hooks mutate: the admitted-call
// depth counter, the tracing-enabled flag, the resolver with its DSO cache,
// and the async backlog. The hook entry points are the only way in; they run
// inline on the calling thread and perform file I/O when a line is emitted
// or a new object is first seen.
//
// The engine is not thread-safe. The depth counter, the resolver cache, and
// the backlog descriptor are mutated without synchronization; tracing a
// multithreaded target is permitted only when interleaved or corrupted
// output is acceptable. The TID prefix option exists to help untangle such
// output manually. The one exception is the enabled flag, which the signal
// handler flips from another goroutine and is therefore atomic.
package trace

import (
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/coregx/ctrace/config"
	"github.com/coregx/ctrace/filter"
	"github.com/coregx/ctrace/loader"
	"github.com/coregx/ctrace/resolve"
	"github.com/coregx/ctrace/sink"
)

// armLike reports whether the instrumentation hook's own address argument is
// trustworthy. On ARM it is; elsewhere a runtime backtrace is taken instead,
// because the argument has historically been unreliable on some platforms.
const armLike = runtime.GOARCH == "arm" || runtime.GOARCH == "arm64"

// Options are the construction-time knobs that do not come from the
// environment.
type Options struct {
	// Loader locates the defining object of an address. Nil means the
	// /proc/self/maps loader.
	Loader loader.Loader

	// Sink receives the formatted output. Nil means standard error.
	Sink sink.Sink

	// TrustHookAddress skips the runtime backtrace and uses the address the
	// hook received. Forced on ARM; tests drive the hooks with synthetic
	// addresses and set it explicitly.
	TrustHookAddress bool
}

// Engine is the in-process tracing engine.
type Engine struct {
	cfg config.Config
	out sink.Sink
	res *resolve.Resolver

	// depth counts the currently-active admitted frames. It is modified
	// only by Enter and Leave.
	depth int

	// enabled gates all hook work. It starts false when a signal trigger is
	// configured and flips on each delivery.
	enabled atomic.Bool

	trustHook bool
	started   bool

	backlog *backlog
	closed  bool

	sigStop func()
}

// New builds an engine from a configuration snapshot.
func New(cfg config.Config, opts Options) *Engine {
	out := opts.Sink
	if out == nil {
		out = &sink.Stderr{}
	}
	ld := opts.Loader
	if ld == nil {
		ld = loader.New()
	}

	e := &Engine{
		cfg:       cfg,
		out:       out,
		trustHook: opts.TrustHookAddress || armLike,
	}
	e.res = resolve.New(
		ld,
		filter.NewLibs(cfg.IncludeLibs, cfg.ExcludeLibs),
		filter.NewFuns(cfg.IncludeFuns, cfg.ExcludeFuns),
		out.Diag,
	)

	e.enabled.Store(true)
	if cfg.Signal > 0 {
		e.enabled.Store(false)
		e.installSignal()
	}
	return e
}

// Enabled reports whether the hooks currently do anything.
func (e *Engine) Enabled() bool { return e.enabled.Load() }

// Toggle flips the enabled flag. It is what a delivery of the configured
// signal does.
func (e *Engine) Toggle() { e.enabled.Store(!e.enabled.Load()) }

// Depth returns the number of currently-active admitted frames.
func (e *Engine) Depth() int { return e.depth }

// Enter is the function-entry hook. self is the instrumented function's own
// address, callsite its caller's.
func (e *Engine) Enter(self, callsite uintptr) {
	if !e.enabled.Load() {
		return
	}
	if e.print(self, dirEnter) == admitted {
		e.depth++
	}
}

// Leave is the function-exit hook.
//
// The decrement happens before printing so the emitted depth matches the
// matching ENTER; a filter suppression undoes it, keeping increments and
// decrements balanced across suppressed frames.
func (e *Engine) Leave(self, callsite uintptr) {
	if !e.enabled.Load() {
		return
	}
	decremented := false
	if e.depth > 0 {
		e.depth--
		decremented = true
	}
	if e.print(self, dirLeave) == suppressed && decremented {
		e.depth++
	}
}

// Close performs the exit-time work: in async mode it emits the deferred
// symbol table and closes the backlog. The hooks keep working after Close;
// in async mode the backlog is gone, so later events are resolved and
// printed synchronously.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.sigStop != nil {
		e.sigStop()
	}
	if e.backlog == nil {
		return nil
	}
	err := e.emitSymtab()
	e.backlog.close()
	e.backlog = nil
	return err
}

type printResult int

const (
	admitted printResult = iota
	suppressed
)

const (
	dirEnter = "ENTER"
	dirLeave = "LEAVE"
)

// print formats and emits one event. An admitted result counts toward the
// depth whether or not a line was actually written: frames beyond the depth
// limit and LEAVEs dropped by entries-only are silently truncated output,
// not rejected calls.
func (e *Engine) print(pc uintptr, dir string) printResult {
	if e.cfg.MaxDepth > 0 && e.depth >= e.cfg.MaxDepth {
		return admitted
	}

	if !e.trustHook {
		// Three frames: this function, the hook, the instrumented caller.
		var pcs [3]uintptr
		if runtime.Callers(1, pcs[:]) < 3 {
			return suppressed
		}
		pc = pcs[2]
	}

	if !e.started {
		e.started = true
		if e.cfg.Async {
			b, err := openBacklog()
			if err != nil {
				e.out.Diag("cannot create backlog, async disabled: %v", err)
				e.cfg.Async = false
			} else {
				e.backlog = b
			}
		}
	}

	if e.cfg.EntriesOnly && dir == dirLeave {
		return admitted
	}

	if e.cfg.Async && e.backlog != nil {
		buf := e.head(dir)
		buf = appendAddr(buf, pc)
		e.out.Emit(string(buf))
		if dir == dirEnter {
			if err := e.backlog.log(pc); err != nil {
				e.out.Diag("backlog write failed: %v", err)
			}
		}
		return admitted
	}

	res := e.res.Resolve(pc)
	if res.Kind == resolve.Suppressed {
		return suppressed
	}

	buf := e.head(dir)
	if e.cfg.LogFname && res.DSO != "" {
		buf = append(buf, res.DSO...)
		buf = append(buf, ':')
	}
	if res.Kind == resolve.FullName {
		buf = append(buf, res.Func...)
		buf = append(buf, '(', ')')
	} else {
		buf = appendAddr(buf, pc)
	}
	e.out.Emit(string(buf))
	return admitted
}

// head renders the line up to the event body: the optional time/tid prefix,
// the direction, the depth annotation, and the indent.
func (e *Engine) head(dir string) []byte {
	buf := make([]byte, 0, 64)

	switch {
	case e.cfg.LogTime && e.cfg.LogTID:
		buf = appendTimeOfDay(buf)
		buf = append(buf, '[')
		buf = strconv.AppendInt(buf, int64(unix.Gettid()), 10)
		buf = append(buf, ']', ' ')
	case e.cfg.LogTime:
		buf = appendTimeOfDay(buf)
		buf = append(buf, ' ')
	case e.cfg.LogTID:
		buf = strconv.AppendInt(buf, int64(unix.Gettid()), 10)
		buf = append(buf, ' ')
	}

	buf = append(buf, dir...)
	buf = append(buf, '[')
	buf = strconv.AppendInt(buf, int64(e.depth), 10)
	buf = append(buf, ']')

	spaces := 1 + e.cfg.Indent*e.depth
	for i := 0; i < spaces; i++ {
		buf = append(buf, ' ')
	}
	return buf
}

// appendTimeOfDay renders seconds.microseconds since the epoch.
func appendTimeOfDay(buf []byte) []byte {
	now := time.Now()
	buf = strconv.AppendInt(buf, now.Unix(), 10)
	buf = append(buf, '.')
	usec := now.Nanosecond() / 1000
	for div := 100000; div > 0; div /= 10 {
		buf = append(buf, byte('0'+usec/div%10))
	}
	return buf
}

// appendAddr renders an address as [0xHEX].
func appendAddr(buf []byte, pc uintptr) []byte {
	buf = append(buf, '[', '0', 'x')
	buf = strconv.AppendUint(buf, uint64(pc), 16)
	return append(buf, ']')
}
