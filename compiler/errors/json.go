package errors

// Report is the machine-readable diagnostics for one expression
type Report struct {
	Expression string          `json:"expression"`
	Valid      bool            `json:"valid"`
	Errors     []CompilerError `json:"errors"`
	Warnings   []CompilerError `json:"warnings"`
}

// NewReport splits the diagnostics of expression by severity. Info entries
// are dropped. The report is valid when no error or fatal entry remains.
func NewReport(expression string, diagnostics ErrorList) *Report {
	r := &Report{
		Expression: expression,
		Errors:     []CompilerError{},
		Warnings:   []CompilerError{},
	}
	for _, d := range diagnostics {
		switch {
		case d.IsError():
			r.Errors = append(r.Errors, d)
		case d.IsWarning():
			r.Warnings = append(r.Warnings, d)
		}
	}
	r.Valid = len(r.Errors) == 0
	return r
}
