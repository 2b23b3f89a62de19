// Package logger provides the leveled console logger used by textfinder.
//
// Every line is prefixed with an [HH:MM:SS] timestamp and its level. Output is
// colored when writing straight to a terminal and plain otherwise, so the same
// logger can feed a rotating log file through an io.MultiWriter.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"textfinder/search"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is implemented by ConsoleLogger and NoOpLogger.
type Logger interface {
	search.Logger
	LogTrace(message string)
	LogInfo(message string)
	LogError(message string)
	LogScanStart(req search.Request)
	LogScanSummary(stats search.Stats)
	Warnings() int
}

// ConsoleLogger writes leveled, timestamped lines to a writer. It is safe for
// concurrent use and satisfies search.Logger.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	warnings    int
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// false when NO_COLOR is set or the stream is not a TTY
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if IsValidLevel(normalized) {
		return normalized
	}
	return "info"
}

// IsValidLevel reports whether level names one of the supported levels.
func IsValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message. Warnings are counted even when the
// level filter drops them.
// Format: "[HH:MM:SS] [WARN] <message>"
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.mutex.Lock()
	cl.warnings++
	cl.mutex.Unlock()
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
// Format: "[HH:MM:SS] [ERROR] <message>"
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// Warnings returns how many warnings were logged so far.
func (cl *ConsoleLogger) Warnings() int {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	return cl.warnings
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}
	cl.writer.Write([]byte(formatted))
}

func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string
	switch level {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}
	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogScanStart logs the start of a scan at INFO level.
// Format: "[HH:MM:SS] Scanning <n> root(s) for "<target>" (<granularity>)"
func (cl *ConsoleLogger) LogScanStart(req search.Request) {
	target := fmt.Sprintf("%q", req.Target)
	if cl.colorOutput {
		target = color.New(color.Bold).Sprint(target)
	}
	cl.LogInfo(fmt.Sprintf("Scanning %d root(s) for %s (%s)", len(req.Roots), target, req.Granularity))
}

// LogScanSummary logs the outcome of a scan at INFO level.
// Format: "[HH:MM:SS] Scan complete (<duration>): <m> matches in <p> files, <s> skipped, <f> failed, <d> dirs excluded"
func (cl *ConsoleLogger) LogScanSummary(stats search.Stats) {
	complete := "Scan complete"
	if cl.colorOutput {
		complete = color.New(color.FgGreen).Sprint(complete)
	}
	cl.LogInfo(fmt.Sprintf("%s (%s): %d matches in %d files, %d skipped, %d failed, %d dirs excluded",
		complete, formatDuration(stats.Elapsed), stats.Matches, stats.FilesProcessed,
		stats.FilesSkipped, stats.FilesFailed, stats.DirsSkipped))
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string)             {}
func (n *NoOpLogger) LogDebug(string)             {}
func (n *NoOpLogger) LogInfo(string)              {}
func (n *NoOpLogger) LogWarn(string)              {}
func (n *NoOpLogger) LogError(string)             {}
func (n *NoOpLogger) LogScanStart(search.Request) {}
func (n *NoOpLogger) LogScanSummary(search.Stats) {}
func (n *NoOpLogger) Warnings() int               { return 0 }
