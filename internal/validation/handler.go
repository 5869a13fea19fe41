package validation

import (
	"sync"

	"go.uber.org/zap"

	"github.com/metaschema-go/metaschema/internal/constraint"
)

// Handler receives findings as the validator produces them
type Handler interface {
	HandleFinding(f Finding)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(f Finding)

func (fn HandlerFunc) HandleFinding(f Finding) { fn(f) }

// Handlers fans findings out to several handlers in order
type Handlers []Handler

func (hs Handlers) HandleFinding(f Finding) {
	for _, h := range hs {
		h.HandleFinding(f)
	}
}

// Collector accumulates findings in the order they are reported
type Collector struct {
	findings []Finding
	mu       sync.Mutex
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) HandleFinding(f Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findings = append(c.findings, f)
}

// Findings returns a copy of the collected findings
func (c *Collector) Findings() []Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]Finding, len(c.findings))
	copy(result, c.findings)
	return result
}

// Len returns the number of collected findings
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.findings)
}

// HighestLevel returns the most severe level collected. The boolean is false
// when nothing was collected.
func (c *Collector) HighestLevel() (constraint.Level, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.findings) == 0 {
		return 0, false
	}
	highest := c.findings[0].Level
	for _, f := range c.findings[1:] {
		if f.Level > highest {
			highest = f.Level
		}
	}
	return highest, true
}

// IsPassing reports whether no finding reaches constraint.LevelError
func (c *Collector) IsPassing() bool {
	highest, ok := c.HighestLevel()
	return !ok || highest < constraint.LevelError
}

// ByPath groups findings by path, keeping the order in which each path was
// first reported
func (c *Collector) ByPath() ([]string, map[string][]Finding) {
	var paths []string
	groups := make(map[string][]Finding)
	for _, f := range c.Findings() {
		if _, ok := groups[f.Path]; !ok {
			paths = append(paths, f.Path)
		}
		groups[f.Path] = append(groups[f.Path], f)
	}
	return paths, groups
}

// LevelFilter passes on findings at or above Min
type LevelFilter struct {
	Min  constraint.Level
	Next Handler
}

func (lf LevelFilter) HandleFinding(f Finding) {
	if f.Level >= lf.Min {
		lf.Next.HandleFinding(f)
	}
}

// LoggingHandler writes each finding to a zap logger
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a handler logging to logger
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingHandler{logger: logger}
}

func (h *LoggingHandler) HandleFinding(f Finding) {
	fields := []zap.Field{
		zap.String("level", f.Level.String()),
		zap.String("kind", f.Kind.String()),
		zap.String("path", f.Path),
	}
	if id := f.ConstraintID(); id != "" {
		fields = append(fields, zap.String("constraint", id))
	}
	if f.Cause != nil {
		fields = append(fields, zap.Error(f.Cause))
	}

	switch {
	case f.Level >= constraint.LevelError:
		h.logger.Error(f.Message, fields...)
	case f.Level == constraint.LevelWarning:
		h.logger.Warn(f.Message, fields...)
	default:
		h.logger.Info(f.Message, fields...)
	}
}
