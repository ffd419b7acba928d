// Package cf checks CF-convention metadata and summarizes dataset axes
package cf

import (
	"fmt"
	"io"
)

// Level is the severity of an issue.
type Level int

const (
	Info Level = iota
	Warning
	Error
)

// String returns the tag used in rendered reports.
func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Warning:
		return "WARN"
	case Error:
		return "ERROR"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Issue is one finding of the checker.
type Issue struct {
	Level   Level
	Message string
}

// Report is the ordered list of findings plus per-level counts.
type Report struct {
	issues   []Issue
	warnings int
	errors   int
}

// Issues returns findings in the order they were recorded.
func (r *Report) Issues() []Issue {
	return r.issues
}

// Warnings returns the number of warning issues.
func (r *Report) Warnings() int { return r.warnings }

// Errors returns the number of error issues.
func (r *Report) Errors() int { return r.errors }

// HasErrors reports whether any error was recorded.
func (r *Report) HasErrors() bool { return r.errors > 0 }

func (r *Report) add(level Level, format string, args ...any) {
	r.issues = append(r.issues, Issue{Level: level, Message: fmt.Sprintf(format, args...)})
	switch level {
	case Warning:
		r.warnings++
	case Error:
		r.errors++
	}
}

func (r *Report) infof(format string, args ...any)  { r.add(Info, format, args...) }
func (r *Report) warnf(format string, args ...any)  { r.add(Warning, format, args...) }
func (r *Report) errorf(format string, args ...any) { r.add(Error, format, args...) }

// WriteTo renders the report in plain text.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var n int64
	write := func(format string, args ...any) error {
		c, err := fmt.Fprintf(w, format, args...)
		n += int64(c)
		return err
	}

	if err := write("cf-check {\n"); err != nil {
		return n, err
	}
	for _, is := range r.issues {
		if err := write("  %s: %s\n", is.Level, is.Message); err != nil {
			return n, err
		}
	}
	if err := write("}\nSummary: %d warnings, %d errors\n", r.warnings, r.errors); err != nil {
		return n, err
	}
	return n, nil
}
