// Package logging provides category-tagged loggers for the knowledge and
// context core. Each subsystem logs under its own category so a noisy
// retrieval pipeline can be silenced without losing store diagnostics.
// The implementation is a thin layer over zap.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem a log line belongs to.
type Category string

const (
	CategoryStore     Category = "store"
	CategoryRepo      Category = "repo"
	CategoryEmbedding Category = "embedding"
	CategoryKB        Category = "kb"
	CategoryPlanner   Category = "planner"
	CategoryRetrieval Category = "retrieval"
	CategoryPrompt    Category = "prompt"
	CategoryAI        Category = "ai"
	CategoryCampaign  Category = "campaign"
	CategoryIngest    Category = "ingest"
	CategoryConfig    Category = "config"
)

// Logger is a category-tagged printf-style logger.
type Logger struct {
	sugar *zap.SugaredLogger
	cat   Category
}

var (
	mu      sync.RWMutex
	root    *zap.Logger
	loggers = make(map[Category]*Logger)
	levels  = make(map[Category]zapcore.Level)
	baseLvl = zapcore.InfoLevel
	logFile *os.File
)

// Initialize configures the process-wide loggers. dir may be empty for
// console-only logging; otherwise a JSON log file is written under it.
// level is one of debug, info, warn, error. Safe to call more than once;
// the last call wins.
func Initialize(dir, level string) error {
	mu.Lock()
	defer mu.Unlock()

	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	baseLvl = lvl

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(os.Stderr),
			zap.NewAtomicLevelAt(lvl),
		),
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "gamemaster.log"),
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		if logFile != nil {
			_ = logFile.Close()
		}
		logFile = f
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(f),
			zap.NewAtomicLevelAt(lvl),
		))
	}

	root = zap.New(zapcore.NewTee(cores...))
	loggers = make(map[Category]*Logger)
	return nil
}

// SetCategoryLevel overrides the minimum level for one category.
func SetCategoryLevel(cat Category, level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	levels[cat] = lvl
	mu.Unlock()
	return nil
}

// IsCategoryEnabled reports whether a category logs at debug level.
func IsCategoryEnabled(cat Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if lvl, ok := levels[cat]; ok {
		return lvl <= zapcore.DebugLevel
	}
	return baseLvl <= zapcore.DebugLevel
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Get returns the logger for a category, building the default console setup
// on first use if Initialize was never called.
func Get(cat Category) *Logger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	if root == nil {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		root = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(cfg),
			zapcore.Lock(os.Stderr),
			zap.NewAtomicLevelAt(baseLvl),
		))
	}
	l := &Logger{
		sugar: root.Named(string(cat)).WithOptions(zap.AddCallerSkip(1)).Sugar(),
		cat:   cat,
	}
	loggers[cat] = l
	return l
}

func (l *Logger) enabled(lvl zapcore.Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	if min, ok := levels[l.cat]; ok {
		return lvl >= min
	}
	return lvl >= baseLvl
}

// Debug logs a printf-style debug line.
func (l *Logger) Debug(format string, args ...any) {
	if l.enabled(zapcore.DebugLevel) {
		l.sugar.Debugf(format, args...)
	}
}

// Info logs a printf-style info line.
func (l *Logger) Info(format string, args ...any) {
	if l.enabled(zapcore.InfoLevel) {
		l.sugar.Infof(format, args...)
	}
}

// Warn logs a printf-style warning line.
func (l *Logger) Warn(format string, args ...any) {
	if l.enabled(zapcore.WarnLevel) {
		l.sugar.Warnf(format, args...)
	}
}

// Error logs a printf-style error line.
func (l *Logger) Error(format string, args ...any) {
	if l.enabled(zapcore.ErrorLevel) {
		l.sugar.Errorf(format, args...)
	}
}

// With returns a logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...), cat: l.cat}
}

// CloseAll flushes buffers and closes the log file.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		_ = root.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// =============================================================================
// PER-CATEGORY CONVENIENCE HELPERS
// =============================================================================

// Store logs to the store category.
func Store(format string, args ...any) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs debug to the store category.
func StoreDebug(format string, args ...any) { Get(CategoryStore).Debug(format, args...) }

// Repo logs to the repo category.
func Repo(format string, args ...any) { Get(CategoryRepo).Info(format, args...) }

// RepoDebug logs debug to the repo category.
func RepoDebug(format string, args ...any) { Get(CategoryRepo).Debug(format, args...) }

// Embedding logs to the embedding category.
func Embedding(format string, args ...any) { Get(CategoryEmbedding).Info(format, args...) }

// EmbeddingDebug logs debug to the embedding category.
func EmbeddingDebug(format string, args ...any) { Get(CategoryEmbedding).Debug(format, args...) }

// KB logs to the knowledge-base category.
func KB(format string, args ...any) { Get(CategoryKB).Info(format, args...) }

// KBDebug logs debug to the knowledge-base category.
func KBDebug(format string, args ...any) { Get(CategoryKB).Debug(format, args...) }

// Planner logs to the planner category.
func Planner(format string, args ...any) { Get(CategoryPlanner).Info(format, args...) }

// PlannerDebug logs debug to the planner category.
func PlannerDebug(format string, args ...any) { Get(CategoryPlanner).Debug(format, args...) }

// Retrieval logs to the retrieval category.
func Retrieval(format string, args ...any) { Get(CategoryRetrieval).Info(format, args...) }

// RetrievalDebug logs debug to the retrieval category.
func RetrievalDebug(format string, args ...any) { Get(CategoryRetrieval).Debug(format, args...) }

// Prompt logs to the prompt category.
func Prompt(format string, args ...any) { Get(CategoryPrompt).Info(format, args...) }

// PromptDebug logs debug to the prompt category.
func PromptDebug(format string, args ...any) { Get(CategoryPrompt).Debug(format, args...) }

// AI logs to the ai category.
func AI(format string, args ...any) { Get(CategoryAI).Info(format, args...) }

// AIDebug logs debug to the ai category.
func AIDebug(format string, args ...any) { Get(CategoryAI).Debug(format, args...) }

// Campaign logs to the campaign category.
func Campaign(format string, args ...any) { Get(CategoryCampaign).Info(format, args...) }

// CampaignDebug logs debug to the campaign category.
func CampaignDebug(format string, args ...any) { Get(CategoryCampaign).Debug(format, args...) }

// Ingest logs to the ingest category.
func Ingest(format string, args ...any) { Get(CategoryIngest).Info(format, args...) }

// IngestDebug logs debug to the ingest category.
func IngestDebug(format string, args ...any) { Get(CategoryIngest).Debug(format, args...) }

// =============================================================================
// OPERATION TIMING
// =============================================================================

// Timer measures the duration of an operation.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s took %s", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs at warn level when the operation exceeded the
// threshold, debug otherwise.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %s (threshold %s)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s took %s", t.op, elapsed)
	}
	return elapsed
}
