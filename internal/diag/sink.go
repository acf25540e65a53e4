package diag

import (
	"bufio"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Sink is the owned (non-global) destination for diagnostics during a
// pipeline run. It is held on Pipeline, never as a package-level
// variable, so that two pipelines running against two different temp
// directories in the same process (e.g. in tests) never interleave
// output. It pairs a zap logger, used for operator-facing progress
// and fatal-path messages, with the structured text log used for
// data-quality/warning diagnostics consumed by the fixme pipeline.
type Sink struct {
	mu     sync.Mutex
	log    *zap.Logger
	text   *bufio.Writer
	offset int64

	warnings    int
	dataQuality int

	onEmit func(Diagnostic) // optional hook, used to feed the binary companion file
}

// NewSink wraps a zap logger and an already-open text log writer.
func NewSink(log *zap.Logger, textLog io.Writer) *Sink {
	return &Sink{
		log:  log,
		text: bufio.NewWriterSize(textLog, 64*1024),
	}
}

// OnEmit installs a callback invoked after every successfully
// rendered diagnostic, with Offset/Length populated. Used by the
// fixme pipeline (internal/fixme) to build its binary companion file
// without re-reading the text log.
func (s *Sink) OnEmit(fn func(Diagnostic)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEmit = fn
}

// Emit records a single diagnostic. Rendering failures are logged via
// zap but never escalate to a pipeline-aborting error: losing one
// diagnostic line must never abort an otherwise-successful build.
func (s *Sink) Emit(d Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch d.Kind {
	case Warning:
		s.warnings++
	case DataQuality:
		s.dataQuality++
	}

	line, err := Render(d)
	if err != nil {
		s.log.Warn("diagnostic render failed", zap.Error(err), zap.String("template", d.Template))
		return
	}

	d.Offset = s.offset
	n, _ := s.text.Write(line)
	s.text.WriteByte('\n')
	d.Length = n
	s.offset += int64(n) + 1

	if s.onEmit != nil {
		s.onEmit(d)
	}

	if d.Kind == Warning {
		s.log.Warn(d.Template, zap.String("entity", d.Entity.String()), zap.Uint64("id", d.OriginalID))
	} else {
		s.log.Debug(d.Template, zap.String("entity", d.Entity.String()), zap.Uint64("id", d.OriginalID))
	}
}

// Flush flushes the buffered text log.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.Flush()
}

// Counts returns the number of warnings and data-quality diagnostics
// emitted so far, used by Pipeline to produce a final summary line.
func (s *Sink) Counts() (warnings, dataQuality int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warnings, s.dataQuality
}
