package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/validation"
)

// FindingOptions configures finding output
type FindingOptions struct {
	NoColor bool
	// MinLevel hides less severe findings. They still count as hidden in
	// the summary.
	MinLevel constraint.Level
}

var levelColors = map[constraint.Level][]color.Attribute{
	constraint.LevelInformational:     {color.FgCyan},
	constraint.LevelWarning:           {color.FgYellow},
	constraint.LevelError:             {color.FgRed},
	constraint.LevelCritical:          {color.FgRed, color.Bold},
	constraint.LevelInvalidConstraint: {color.FgMagenta, color.Bold},
}

// FormatLevel renders a level label padded to a common width
func FormatLevel(level constraint.Level, noColor bool) string {
	label := padRight(strings.ToUpper(level.String()), len("INVALID-CONSTRAINT"))
	return paint(noColor, levelColors[level]...).Sprint(label)
}

// WriteFindings writes the findings of one document grouped by node path,
// in the order paths were first reported, followed by a summary line. It
// returns the number of findings shown.
func WriteFindings(w io.Writer, document string, findings []validation.Finding, opts FindingOptions) int {
	var paths []string
	groups := make(map[string][]validation.Finding)
	counts := make(map[constraint.Level]int)
	hidden := 0
	for _, f := range findings {
		counts[f.Level]++
		if f.Level < opts.MinLevel {
			hidden++
			continue
		}
		if _, ok := groups[f.Path]; !ok {
			paths = append(paths, f.Path)
		}
		groups[f.Path] = append(groups[f.Path], f)
	}

	bold := paint(opts.NoColor, color.Bold)
	gray := paint(opts.NoColor, color.FgHiBlack)

	if len(paths) > 0 {
		bold.Fprintln(w, document)
	}
	for _, path := range paths {
		fmt.Fprintf(w, "  %s\n", path)
		for _, f := range groups[path] {
			label := f.Kind.String()
			if id := f.ConstraintID(); id != "" {
				label += " " + id
			}
			fmt.Fprintf(w, "    %s %s %s\n", FormatLevel(f.Level, opts.NoColor), gray.Sprintf("[%s]", label), f.Message)
		}
	}

	fmt.Fprintln(w, Summary(document, counts, hidden, opts.NoColor))
	return len(findings) - hidden
}

// Summary renders a one-line verdict for a document: passing unless a
// finding reaches constraint.LevelError
func Summary(document string, counts map[constraint.Level]int, hidden int, noColor bool) string {
	total := 0
	failing := false
	var parts []string
	for level := constraint.LevelInvalidConstraint; level >= constraint.LevelInformational; level-- {
		n := counts[level]
		if n == 0 {
			continue
		}
		total += n
		if level >= constraint.LevelError {
			failing = true
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, level))
	}

	if total == 0 {
		return FormatSuccess(document+": valid", noColor)
	}
	detail := strings.Join(parts, ", ")
	if hidden > 0 {
		detail += fmt.Sprintf("; %d hidden", hidden)
	}
	noun := "findings"
	if total == 1 {
		noun = "finding"
	}
	if failing {
		return paint(noColor, color.FgRed, color.Bold).Sprintf("✗ %s: %d %s (%s)", document, total, noun, detail)
	}
	return paint(noColor, color.FgYellow, color.Bold).Sprintf("! %s: passed with %d %s (%s)", document, total, noun, detail)
}
