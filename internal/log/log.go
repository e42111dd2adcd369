// Package log provides structured logging for the motion core.
//
// Every subsystem logs through a component-scoped logger (Component), so
// a line from the 100Hz heartbeat is distinguishable from one raised by
// a tool call or the e-stop listener without parsing the message text.
// Limiter throttles log lines from hot loops: at 100 ticks per second a
// dead SDK link would otherwise write a hundred identical errors a
// second.
package log

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	logger *slog.Logger
	once   sync.Once
	level  = new(slog.LevelVar)
)

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
// The handler is built on the first call; later calls only change the
// level, which loggers created earlier (Component loggers) follow too.
func Init(name string) {
	var lvl slog.Level
	switch name {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	level.Set(lvl)

	once.Do(func() {
		opts := &slog.HandlerOptions{
			Level: level,
		}

		// JSON on the robot, text on a dev machine
		if os.Getenv("GO_ENV") == "production" {
			logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
		} else {
			logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
		}

		slog.SetDefault(logger)
	})
}

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init("info")
	}
	return logger
}

// Component returns a logger tagged with the subsystem name. One per
// package, created at init: log.Component("heartbeat"), "bridge",
// "estop", ...
func Component(name string) *slog.Logger {
	return L().With("component", name)
}

// Info logs at info level on the global logger. Prefer a Component
// logger inside subsystems; these helpers exist for main and glue code.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// Limiter admits at most one log line per interval and counts what it
// suppressed in between, so a hot loop can report "and 499 more like
// this" instead of flooding.
type Limiter struct {
	mu         sync.Mutex
	interval   time.Duration
	last       time.Time
	suppressed int
}

// NewLimiter creates a limiter admitting one line per interval.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// Allow reports whether the caller may log now. When it returns true,
// suppressed is the number of lines swallowed since the last admitted
// one; include it in the log line.
func (l *Limiter) Allow() (suppressed int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() && time.Since(l.last) < l.interval {
		l.suppressed++
		return 0, false
	}
	n := l.suppressed
	l.suppressed = 0
	l.last = time.Now()
	return n, true
}
