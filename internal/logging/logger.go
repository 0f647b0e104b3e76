package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jrick/logrotate/rotator"
)

// LoggingConfig selects the level and destination of a Logger
type LoggingConfig struct {
	Level       string `json:"level"`
	Output      string `json:"output"`
	ThresholdKB int64  `json:"threshold_kb"`
	MaxRolls    int    `json:"max_rolls"`
}

// Logger is a leveled wrapper around log.Logger
type Logger struct {
	logger *log.Logger
	config *LoggingConfig
	mutex  sync.RWMutex
	level  LogLevel
	closer io.Closer
}

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	OFF
)

var levelMap = map[string]LogLevel{
	"debug": DEBUG,
	"info":  INFO,
	"warn":  WARN,
	"error": ERROR,
	"off":   OFF,
}

// ParseLevel maps a level name to a LogLevel, defaulting to INFO
func ParseLevel(name string) LogLevel {
	if level, ok := levelMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return level
	}
	return INFO
}

// NewLogger opens the configured output. Any output other than stdout or
// stderr is a file path written through a size-based rotator.
func NewLogger(config *LoggingConfig) (*Logger, error) {
	if config == nil {
		config = &LoggingConfig{
			Level:  "info",
			Output: "stdout",
		}
	}
	if config.ThresholdKB <= 0 {
		config.ThresholdKB = 10 * 1024
	}
	if config.MaxRolls <= 0 {
		config.MaxRolls = 3
	}

	var output io.Writer
	var closer io.Closer
	switch config.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		if dir := filepath.Dir(config.Output); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		r, err := rotator.New(config.Output, config.ThresholdKB, false, config.MaxRolls)
		if err != nil {
			return nil, fmt.Errorf("failed to create log rotator: %w", err)
		}
		output = r
		closer = r
	}

	return &Logger{
		logger: log.New(output, "", log.LstdFlags),
		config: config,
		level:  ParseLevel(config.Level),
		closer: closer,
	}, nil
}

// New returns a logger writing to w at level
func New(w io.Writer, level LogLevel) *Logger {
	return &Logger{
		logger: log.New(w, "", log.LstdFlags),
		config: &LoggingConfig{},
		level:  level,
	}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return New(io.Discard, OFF)
}

// SetLevel changes the minimum level at runtime
func (l *Logger) SetLevel(level LogLevel) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.level = level
}

func (l *Logger) enabled(level LogLevel) bool {
	if l == nil {
		return false
	}
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.level <= level
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.enabled(DEBUG) {
		l.logger.Printf("[DEBUG] "+format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.enabled(INFO) {
		l.logger.Printf("[INFO] "+format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.enabled(WARN) {
		l.logger.Printf("[WARN] "+format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.enabled(ERROR) {
		l.logger.Printf("[ERROR] "+format, args...)
	}
}

// Close flushes and closes a rotating file output
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
