package party

import (
	"github.com/joeycumines/logiface"
)

// logifaceLogger adapts a github.com/joeycumines/logiface event logger to
// the [Logger] interface, the way eventloop/options_test.go wires
// logiface.New[logiface.Event] into that package's own logging surface.
type logifaceLogger struct {
	log   *logiface.Logger[logiface.Event]
	level LogLevel
}

// NewLogifaceLogger adapts l, forwarding entries at or above minLevel.
func NewLogifaceLogger(l *logiface.Logger[logiface.Event], minLevel LogLevel) Logger {
	return &logifaceLogger{log: l, level: minLevel}
}

// IsEnabled implements [Logger].
func (a *logifaceLogger) IsEnabled(level LogLevel) bool {
	return a.log != nil && level >= a.level
}

// Log implements [Logger], mapping party's LogEntry onto logiface's
// builder-style event API.
func (a *logifaceLogger) Log(entry LogEntry) {
	if !a.IsEnabled(entry.Level) {
		return
	}

	var b *logiface.Builder[logiface.Event]
	switch entry.Level {
	case LevelDebug:
		b = a.log.Debug()
	case LevelWarn:
		b = a.log.Warning()
	case LevelError:
		b = a.log.Err()
	default:
		b = a.log.Info()
	}
	if b == nil {
		return
	}

	b = b.Str("category", entry.Category)
	if entry.PartyID != 0 {
		b = b.Uint64("party_id", entry.PartyID)
	}
	if entry.Slot >= 0 {
		b = b.Int("slot", entry.Slot)
	}
	if entry.Generation != 0 {
		b = b.Uint64("generation", uint64(entry.Generation))
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	for k, v := range entry.Context {
		b = b.Any(k, v)
	}
	b.Log(entry.Message)
}
