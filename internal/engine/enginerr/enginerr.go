// Package enginerr defines the sentinel error kinds of SPEC_FULL.md §7.
// Callers compare with errors.Is; every wrapped error carries one of these
// as its root cause.
package enginerr

import "errors"

var (
	// ErrIO covers filesystem read failures.
	ErrIO = errors.New("io")
	// ErrPathEscape covers an appendFile target outside the configured root.
	ErrPathEscape = errors.New("path escape")
	// ErrSyntax covers parser rejection of the source.
	ErrSyntax = errors.New("syntax error")
	// ErrNotFound covers a (path, line) with no matching nodes, or a seed
	// that cannot be located.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput covers out-of-range appendSource arguments, malformed
	// configuration, and nameOf encountering an unsupported node kind.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateHandle covers the HTML collaborator parsing one file twice.
	ErrDuplicateHandle = errors.New("duplicate handle")
)
