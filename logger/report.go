package logger

import "sync/atomic"

var (
	warnCount  int64
	errorCount int64
)

func recordWarn() {
	atomic.AddInt64(&warnCount, 1)
}

func recordError() {
	atomic.AddInt64(&errorCount, 1)
}

// Counters returns the number of warnings and errors logged so far in
// this process.
func Counters() (warns, errors int64) {
	return atomic.LoadInt64(&warnCount), atomic.LoadInt64(&errorCount)
}

// RunReport logs a single end-of-run summary with the given fields plus
// the accumulated warning and error counts.
func RunReport(log *Log, fields Fields) {
	if fields == nil {
		fields = make(Fields)
	}
	warns, errors := Counters()
	fields["warnings"] = warns
	fields["errors"] = errors
	log.WithComponent("report").WithFields(fields).Info("run report")
}

// LevelForVerbosity maps a counted -v/-q verbosity to a logrus level
// name: 0 is the warn default, positive values open up info, debug and
// trace, negative values tighten to error and panic.
func LevelForVerbosity(verbosity int) string {
	switch {
	case verbosity <= -2:
		return "panic"
	case verbosity == -1:
		return "error"
	case verbosity == 0:
		return "warn"
	case verbosity == 1:
		return "info"
	case verbosity == 2:
		return "debug"
	default:
		return "trace"
	}
}
