// Package logging provides config-driven categorized file-based logging for
// sprintgym. Logs are written to {workspace}/.gym/logs/ with separate files
// per category. Logging is controlled by the SPRINTGYM_DEBUG environment
// variable - when unset, no log files are written.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Category represents a log category/system.
type Category string

const (
	CategoryEpisode     Category = "episode"     // Episode harness lifecycle
	CategoryScenario    Category = "scenario"    // Scenario generation, curriculum
	CategoryPhase       Category = "phase"       // Phase execution
	CategoryTrace       Category = "trace"       // Decision tracing
	CategoryCheckpoint  Category = "checkpoint"  // Checkpoint save/restore
	CategoryReward      Category = "reward"      // Reward calculation
	CategoryRuntime     Category = "runtime"     // LLM runtime calls
	CategoryObserve     Category = "observe"     // Observation extraction
	CategoryDistributor Category = "distributor" // Story distribution
	CategoryStore       Category = "store"       // Database collaborators
	CategoryAction      Category = "action"      // Action execution
)

// Logger writes timestamped lines to a per-category file.
type Logger struct {
	category Category
	file     *os.File
	mu       sync.Mutex
}

var (
	mu      sync.Mutex
	loggers = map[Category]*Logger{}
	logDir  string
	enabled bool
	catFilt map[string]bool
)

// Initialize configures the logging subsystem rooted at the given workspace.
// Safe to call more than once; the last workspace wins.
func Initialize(workspace string) error {
	mu.Lock()
	defer mu.Unlock()

	enabled = os.Getenv("SPRINTGYM_DEBUG") != ""
	if !enabled {
		return nil
	}

	// Optional category filter: SPRINTGYM_DEBUG=phase,checkpoint
	catFilt = nil
	if v := os.Getenv("SPRINTGYM_DEBUG"); v != "" && v != "1" && v != "true" && v != "all" {
		catFilt = map[string]bool{}
		for _, c := range strings.Split(v, ",") {
			catFilt[strings.TrimSpace(c)] = true
		}
	}

	logDir = filepath.Join(workspace, ".gym", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// IsDebugMode reports whether debug logging is active.
func IsDebugMode() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// IsCategoryEnabled reports whether the category passes the filter.
func IsCategoryEnabled(category Category) bool {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return false
	}
	if catFilt == nil {
		return true
	}
	return catFilt[string(category)]
}

// Get returns the logger for a category, creating its file lazily.
func Get(category Category) *Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{category: category}
	if enabled && logDir != "" {
		path := filepath.Join(logDir, string(category)+".log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Printf("logging: cannot open %s: %v", path, err)
		} else {
			l.file = f
		}
	}
	loggers[category] = l
	return l
}

func (l *Logger) write(level, format string, args ...interface{}) {
	if !IsCategoryEnabled(l.category) || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().UTC().Format(time.RFC3339)
	fmt.Fprintf(l.file, "%s [%s] %s\n", ts, level, fmt.Sprintf(format, args...))
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) { l.write("DEBUG", format, args...) }

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) { l.write("INFO", format, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) { l.write("WARN", format, args...) }

// Error logs at error level.
func (l *Logger) Error(format string, args ...interface{}) { l.write("ERROR", format, args...) }

// CloseAll closes every open log file. Called on shutdown.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
			l.file = nil
		}
	}
	loggers = map[Category]*Logger{}
}

// Category convenience helpers, printf-style.

func Episode(format string, args ...interface{})      { Get(CategoryEpisode).Info(format, args...) }
func EpisodeDebug(format string, args ...interface{}) { Get(CategoryEpisode).Debug(format, args...) }

func Scenario(format string, args ...interface{})      { Get(CategoryScenario).Info(format, args...) }
func ScenarioDebug(format string, args ...interface{}) { Get(CategoryScenario).Debug(format, args...) }

func Phase(format string, args ...interface{})      { Get(CategoryPhase).Info(format, args...) }
func PhaseDebug(format string, args ...interface{}) { Get(CategoryPhase).Debug(format, args...) }

func Trace(format string, args ...interface{})      { Get(CategoryTrace).Info(format, args...) }
func TraceDebug(format string, args ...interface{}) { Get(CategoryTrace).Debug(format, args...) }

func Checkpoint(format string, args ...interface{}) { Get(CategoryCheckpoint).Info(format, args...) }
func CheckpointWarn(format string, args ...interface{}) {
	Get(CategoryCheckpoint).Warn(format, args...)
}

func Reward(format string, args ...interface{}) { Get(CategoryReward).Info(format, args...) }

func Runtime(format string, args ...interface{})      { Get(CategoryRuntime).Info(format, args...) }
func RuntimeDebug(format string, args ...interface{}) { Get(CategoryRuntime).Debug(format, args...) }
func RuntimeError(format string, args ...interface{}) { Get(CategoryRuntime).Error(format, args...) }

func Observe(format string, args ...interface{}) { Get(CategoryObserve).Info(format, args...) }

func Distributor(format string, args ...interface{}) {
	Get(CategoryDistributor).Info(format, args...)
}

func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

func Action(format string, args ...interface{}) { Get(CategoryAction).Info(format, args...) }
