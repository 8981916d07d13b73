package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger is a structured logger with level support.
// Loggers derived with WithField/WithPrefix share the parent's output and lock.
type Logger struct {
	mu       *sync.Mutex
	out      io.Writer
	sink     io.Closer
	level    Level
	prefix   string
	fields   map[string]any
	colorize bool
	format   Format
}

// Format selects the line encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat maps "json" to FormatJSON and anything else to FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// Option configures a Logger.
type Option func(*Logger)

// WithOutput sets the output destination.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.out = w
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) Option {
	return func(l *Logger) {
		l.level = level
	}
}

// WithPrefix sets a prefix for log messages.
func WithPrefix(prefix string) Option {
	return func(l *Logger) {
		l.prefix = prefix
	}
}

// WithColors enables or disables colorized output.
func WithColors(enabled bool) Option {
	return func(l *Logger) {
		l.colorize = enabled
	}
}

// FileConfig describes a size-rotated log file written next to the primary output.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// WithFormat sets the line encoding. JSON lines are never colorized.
func WithFormat(f Format) Option {
	return func(l *Logger) {
		l.format = f
	}
}

// WithFile tees every line into a rotating log file. Colors are never written to the file.
func WithFile(cfg FileConfig) Option {
	return func(l *Logger) {
		if cfg.Path == "" {
			return
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		l.out = io.MultiWriter(l.out, &stripColors{w: rotator})
		l.sink = rotator
	}
}

// New creates a new Logger with the given options.
func New(opts ...Option) *Logger {
	l := &Logger{
		mu:       &sync.Mutex{},
		out:      os.Stdout,
		level:    INFO,
		fields:   make(map[string]any),
		colorize: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var defaultLogger = New()

// SetDefault sets the default logger.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// Default returns the default logger.
func Default() *Logger {
	return defaultLogger
}

// Close flushes and closes the rotating file, if one was configured.
func (l *Logger) Close() error {
	if l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

func (l *Logger) derive(prefix string, fields map[string]any) *Logger {
	return &Logger{
		mu:       l.mu,
		out:      l.out,
		sink:     l.sink,
		level:    l.level,
		prefix:   prefix,
		fields:   fields,
		colorize: l.colorize,
		format:   l.format,
	}
}

// WithField returns a new logger with the given field added.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields returns a new logger with the given fields added.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	newFields := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return l.derive(l.prefix, newFields)
}

// WithError returns a new logger carrying err as the "error" field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// WithPrefix returns a new logger with the given prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return l.derive(prefix, l.fields)
}

// entry is one formatted log line before encoding.
type entry struct {
	Time    time.Time
	Level   Level
	Prefix  string
	Caller  string
	Message string
	Fields  map[string]any
}

func (l *Logger) log(level Level, msg string, args ...any) {
	if level < l.level {
		return
	}

	e := entry{
		Time:    time.Now(),
		Level:   level,
		Prefix:  l.prefix,
		Message: msg,
		Fields:  l.fields,
	}
	if len(args) > 0 {
		e.Message = fmt.Sprintf(msg, args...)
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		e.Caller = fmt.Sprintf("%s:%d", file[strings.LastIndex(file, "/")+1:], line)
	}

	var line string
	if l.format == FormatJSON {
		line = encodeJSON(e)
	} else {
		line = encodeText(e, l.colorize)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, line)
}

func sortedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// encodeText renders "time LEVEL [prefix] [file:line] message k=v ..." with
// fields in key order.
func encodeText(e entry, color bool) string {
	var sb strings.Builder
	sb.WriteString(e.Time.Format("2006-01-02 15:04:05.000"))
	sb.WriteByte(' ')
	if color {
		sb.WriteString(colorize(e.Level))
	} else {
		fmt.Fprintf(&sb, "%-5s", e.Level.String())
	}
	sb.WriteByte(' ')
	if e.Prefix != "" {
		sb.WriteString("[" + e.Prefix + "] ")
	}
	if e.Caller != "" {
		sb.WriteString("[" + e.Caller + "] ")
	}
	sb.WriteString(e.Message)
	for _, k := range sortedKeys(e.Fields) {
		fmt.Fprintf(&sb, " %s=%v", k, e.Fields[k])
	}
	sb.WriteByte('\n')
	return sb.String()
}

// encodeJSON renders one JSON object per line. Fields never shadow the fixed keys.
func encodeJSON(e entry) string {
	obj := make(map[string]any, len(e.Fields)+5)
	for k, v := range e.Fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		obj[k] = v
	}
	obj["time"] = e.Time.UTC().Format(time.RFC3339Nano)
	obj["level"] = e.Level.String()
	obj["msg"] = e.Message
	if e.Prefix != "" {
		obj["component"] = e.Prefix
	}
	if e.Caller != "" {
		obj["caller"] = e.Caller
	}

	data, err := json.Marshal(obj)
	if err != nil {
		data, _ = json.Marshal(map[string]any{"level": e.Level.String(), "msg": e.Message, "encode_error": err.Error()})
	}
	return string(data) + "\n"
}

// stripColors removes ANSI color sequences before writing.
type stripColors struct {
	w io.Writer
}

func (s *stripColors) Write(p []byte) (int, error) {
	clean := ansiReplacer.Replace(string(p))
	if _, err := io.WriteString(s.w, clean); err != nil {
		return 0, err
	}
	return len(p), nil
}

var ansiReplacer = strings.NewReplacer(
	"\033[36m", "",
	"\033[32m", "",
	"\033[33m", "",
	"\033[31m", "",
	"\033[0m", "",
)

func colorize(level Level) string {
	var color string
	switch level {
	case DEBUG:
		color = "\033[36m" // Cyan
	case INFO:
		color = "\033[32m" // Green
	case WARN:
		color = "\033[33m" // Yellow
	case ERROR:
		color = "\033[31m" // Red
	default:
		color = "\033[0m"
	}
	return fmt.Sprintf("%s%-5s\033[0m", color, level.String())
}

// Debug logs a message at DEBUG level.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(DEBUG, msg, args...)
}

// Info logs a message at INFO level.
func (l *Logger) Info(msg string, args ...any) {
	l.log(INFO, msg, args...)
}

// Warn logs a message at WARN level.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(WARN, msg, args...)
}

// Error logs a message at ERROR level.
func (l *Logger) Error(msg string, args ...any) {
	l.log(ERROR, msg, args...)
}

// Package-level functions that use the default logger.

func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }

// Context key for request-scoped logger.
type ctxKey struct{}

// FromContext returns the logger from the context, or the default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// NewContext returns a new context with the given logger.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

