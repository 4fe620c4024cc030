// Package sink delivers formatted trace lines.
//
// Two sinks exist and both receive the same payload: Stderr writes each line
// to standard error in a single write call, and Logging routes lines through
// a go-logging logger. Diagnostics (malformed configuration, degraded
// lookups) travel through the same sink as the trace itself, so a redirected
// trace carries its own complaints.
package sink

import (
	"fmt"
	"io"
	"os"

	"github.com/op/go-logging"
)

// Sink receives formatted trace output.
type Sink interface {
	// Emit writes one event line.
	Emit(line string)

	// Diag writes a one-line diagnostic.
	Diag(format string, args ...any)
}

// Stderr writes lines to standard error, newline-terminated, one write call
// per line so that interleaving with the target's own output stays
// line-granular.
type Stderr struct {
	// W overrides the destination; nil means os.Stderr.
	W io.Writer
}

func (s *Stderr) writer() io.Writer {
	if s.W != nil {
		return s.W
	}
	return os.Stderr
}

// Emit implements Sink.
func (s *Stderr) Emit(line string) {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	s.writer().Write(buf)
}

// Diag implements Sink.
func (s *Stderr) Diag(format string, args ...any) {
	s.Emit("ctrace: " + fmt.Sprintf(format, args...))
}

var logFormat = logging.MustStringFormatter(`%{message}`)

// Logging routes lines through a go-logging logger.
type Logging struct {
	log *logging.Logger
}

// NewLogging builds a logging-facility sink writing to standard error under
// the given module name. The formatter passes lines through verbatim so both
// sinks produce the same payload.
func NewLogging(module string) *Logging {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, logFormat))
	leveled.SetLevel(logging.INFO, module)
	log := logging.MustGetLogger(module)
	log.SetBackend(leveled)
	return &Logging{log: log}
}

// Emit implements Sink.
func (l *Logging) Emit(line string) {
	l.log.Info(line)
}

// Diag implements Sink.
func (l *Logging) Diag(format string, args ...any) {
	l.log.Warningf("ctrace: "+format, args...)
}
