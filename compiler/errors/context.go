package errors

import "strings"

// EnrichError adds the offending source line and, where one applies, a fix
// suggestion to err
func EnrichError(err CompilerError, source string) CompilerError {
	err = err.WithContext(extractSourceContext(err.Location, source))

	if suggestion := suggestFix(err); suggestion != nil {
		err = err.WithSuggestion(*suggestion)
	}

	return err
}

// extractSourceContext returns the line the location points into
func extractSourceContext(location SourceLocation, source string) ErrorContext {
	lines := strings.Split(source, "\n")
	if location.Line < 1 || location.Line > len(lines) {
		return ErrorContext{}
	}

	start := location.Column - 1
	end := start + location.Length
	if location.Length == 0 {
		end = start + 1
	}

	return ErrorContext{
		SourceLine: lines[location.Line-1],
		Highlight: Highlight{
			Start: start,
			End:   end,
		},
	}
}
