// Package logging includes utilities used to trace the compiler pipeline. This is in an independent package to
// avoid dependency cycles.
package logging

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type LogScopes uint64

const (
	LogScopeNone             = LogScopes(0)
	LogScopeDecode LogScopes = 1 << iota
	LogScopeBuild
	LogScopeEmit
	LogScopeOptimize
	LogScopeAll = LogScopes(0xffffffffffffffff)
)

func scopeName(s LogScopes) string {
	switch s {
	case LogScopeDecode:
		return "decode"
	case LogScopeBuild:
		return "build"
	case LogScopeEmit:
		return "emit"
	case LogScopeOptimize:
		return "optimize"
	default:
		return fmt.Sprintf("<unknown=%d>", s)
	}
}

// IsEnabled returns true if the scope (or group of scopes) is enabled.
func (f LogScopes) IsEnabled(scope LogScopes) bool {
	return f&scope != 0
}

// String implements fmt.Stringer by returning each enabled log scope.
func (f LogScopes) String() string {
	if f == LogScopeAll {
		return "all"
	}
	var builder strings.Builder
	for i := 0; i <= 63; i++ { // cycle through all bits to reduce code and maintenance
		target := LogScopes(1 << i)
		if f.IsEnabled(target) {
			if name := scopeName(target); name != "" {
				if builder.Len() > 0 {
					builder.WriteByte('|')
				}
				builder.WriteString(name)
			}
		}
	}
	return builder.String()
}

// ParseLogScopes parses a comma-separated list of scope names, such as "decode,build". "all" enables every scope.
func ParseLogScopes(input string) (LogScopes, error) {
	var f LogScopes
	for _, s := range strings.Split(input, ",") {
		switch strings.TrimSpace(s) {
		case "":
			continue
		case "all":
			f |= LogScopeAll
		case "decode":
			f |= LogScopeDecode
		case "build":
			f |= LogScopeBuild
		case "emit":
			f |= LogScopeEmit
		case "optimize":
			f |= LogScopeOptimize
		default:
			return 0, fmt.Errorf("not a log scope: %q", s)
		}
	}
	return f, nil
}

type Writer interface {
	io.Writer
	io.StringWriter
	io.ByteWriter
}

// Logger writes one line per event for each enabled scope. A nil *Logger is valid and logs nothing, so call sites
// need no guard.
type Logger struct {
	w      Writer
	flush  func() error
	scopes LogScopes
}

// NewLogger returns a Logger writing to w, or nil if w is nil or no scope is enabled.
func NewLogger(w io.Writer, scopes LogScopes) *Logger {
	if w == nil || scopes == LogScopeNone {
		return nil
	}
	l := &Logger{scopes: scopes}
	if lw, ok := w.(Writer); ok {
		l.w = lw
	} else {
		bw := bufio.NewWriter(w)
		l.w, l.flush = bw, bw.Flush
	}
	return l
}

// IsEnabled returns true if events in the scope are written.
func (l *Logger) IsEnabled(scope LogScopes) bool {
	return l != nil && l.scopes.IsEnabled(scope)
}

// Logf writes a line prefixed with the scope name, if that scope is enabled.
func (l *Logger) Logf(scope LogScopes, format string, args ...interface{}) {
	if !l.IsEnabled(scope) {
		return
	}
	_ = l.w.WriteByte('[')
	_, _ = l.w.WriteString(scopeName(scope))
	_, _ = l.w.WriteString("] ")
	_, _ = fmt.Fprintf(l.w, format, args...)
	_ = l.w.WriteByte('\n')
	if l.flush != nil {
		_ = l.flush()
	}
}
