package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// ANSI Color Codes
const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Cyan    = "\033[36m"
	Magenta = "\033[35m"
	White   = "\033[97m"
)

type LogLevel int

const (
	LogLevelError   LogLevel = 0
	LogLevelWarning LogLevel = 1
	LogLevelInfo    LogLevel = 2
	LogLevelDebug   LogLevel = 3
)

var (
	mu       sync.RWMutex
	logLevel = LogLevelError // the default
	logFile  io.Writer
)

// eventField marks success and notice entries. The console shows it as the
// level tag, the JSON log file keeps it as a field next to "level":"info".
const eventField = "event"

var console io.Writer = newConsoleWriter(os.Stdout, !isTerminal(os.Stdout))

var logger = build()

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func newConsoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	output := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: "2006/01/02 15:04:05.000000",
	}
	output.FormatPrepare = func(evt map[string]interface{}) error {
		if event, ok := evt[eventField].(string); ok {
			evt[zerolog.LevelFieldName] = event
			delete(evt, eventField)
		}
		return nil
	}
	output.FormatLevel = func(i interface{}) string {
		level, _ := i.(string)
		tag := "[" + strings.ToUpper(level) + "]"
		if noColor {
			return tag
		}
		switch level {
		case "debug":
			return Cyan + tag + Reset
		case "warn":
			return Yellow + tag + Reset
		case "success":
			return Green + tag + Reset
		case "notice":
			return Magenta + tag + Reset
		case "error", "fatal", "panic":
			return Red + tag + Reset
		default:
			return White + tag + Reset
		}
	}
	return output
}

func zerologLevel(l LogLevel) zerolog.Level {
	switch {
	case l <= LogLevelError:
		return zerolog.ErrorLevel
	case l == LogLevelWarning:
		return zerolog.WarnLevel
	case l == LogLevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// build must be called with mu held for writing, or during package init.
func build() zerolog.Logger {
	var w io.Writer = console
	if logFile != nil {
		w = zerolog.MultiLevelWriter(console, logFile)
	}
	return zerolog.New(w).Level(zerologLevel(logLevel)).With().Timestamp().Logger()
}

func SetLogLevel(newLevel int) {
	mu.Lock()
	defer mu.Unlock()
	logLevel = LogLevel(newLevel)
	logger = build()
}

// ParseLevel maps a level name to the numeric level SetLogLevel expects.
func ParseLevel(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return int(LogLevelError), nil
	case "warn", "warning":
		return int(LogLevelWarning), nil
	case "info":
		return int(LogLevelInfo), nil
	case "debug":
		return int(LogLevelDebug), nil
	}
	return 0, errors.Errorf("unknown log level %q", name)
}

// SetLogFile mirrors every entry as JSON into logFile, next to the console output.
func SetLogFile(f io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logFile = f
	logger = build()
}

// SetOutput replaces the console writer. Colors are disabled for anything
// that is not a terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isTerminal(f)
	}
	console = newConsoleWriter(w, noColor)
	logger = build()
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func Fatalf(format string, args ...interface{}) {
	current().Fatal().Msgf(format, args...)
}

func Debugf(format string, args ...interface{}) {
	current().Debug().Msgf(format, args...)
}

func Infof(format string, args ...interface{}) {
	current().Info().Msgf(format, args...)
}

// Successf logs at info level, for successful events like finding a block.
func Successf(format string, args ...interface{}) {
	current().Info().Str(eventField, "success").Msgf(format, args...)
}

// Noticef logs at info level, for noteworthy events like receiving new work.
func Noticef(format string, args ...interface{}) {
	current().Info().Str(eventField, "notice").Msgf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	current().Warn().Msgf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	current().Error().Msgf(format, args...)
}
