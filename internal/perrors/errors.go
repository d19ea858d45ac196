// Package perrors defines the psqlpack error taxonomy (spec §7).
//
// Every error a caller can observe from build, publish, script, or report
// is one of the kinds below. Kinds that wrap an underlying failure (I/O,
// database, format) chain through github.com/go-extras/errx so the cause
// survives errors.Is/errors.As while the outer kind still renders a
// human-readable diagnostic, mirroring the cause-to-surface chaining the
// original implementation did with error_chain!.
package perrors

import (
	"fmt"
	"strings"

	"github.com/go-extras/errx"
)

// Sentinels for errx.Classify/errors.Is matching. Each except
// ErrQueryExtensions pairs with a typed error below that carries the
// context spec §7 requires; ErrQueryExtensions only tags errors of other
// kinds.
var (
	ErrProjectRead          = errx.NewSentinel("couldn't read project file")
	ErrProjectParse         = errx.NewSentinel("couldn't parse project file")
	ErrInvalidScriptPath    = errx.NewSentinel("invalid script path in project file")
	ErrPublishProfileRead   = errx.NewSentinel("couldn't read publish profile file")
	ErrPublishProfileParse  = errx.NewSentinel("couldn't parse publish profile file")
	ErrPackageRead          = errx.NewSentinel("couldn't read package file")
	ErrPackageUnarchive     = errx.NewSentinel("couldn't unarchive package file")
	ErrPackageInternalRead  = errx.NewSentinel("couldn't read part of the package file")
	ErrIO                   = errx.NewSentinel("IO error when reading a file")
	ErrFormat               = errx.NewSentinel("format error when reading a file")
	ErrGeneration           = errx.NewSentinel("error generating package")
	ErrProject              = errx.NewSentinel("project format error")
	ErrDatabase             = errx.NewSentinel("database error")
	ErrQueryExtensions      = errx.NewSentinel("failed to query installed extensions")
)

// ProjectReadError mirrors PsqlpackErrorKind::ProjectReadError(path).
type ProjectReadError struct {
	Path  string
	Cause error
}

func (e *ProjectReadError) Error() string {
	return fmt.Sprintf("couldn't read project file: %s", e.Path)
}
func (e *ProjectReadError) Unwrap() error { return e.Cause }

func NewProjectReadError(path string, cause error) error {
	return errx.Classify(&ProjectReadError{Path: path, Cause: cause}, ErrProjectRead)
}

// ProjectParseError mirrors PsqlpackErrorKind::ProjectParseError(path).
type ProjectParseError struct {
	Path  string
	Cause error
}

func (e *ProjectParseError) Error() string {
	return fmt.Sprintf("couldn't parse project file: %s", e.Path)
}
func (e *ProjectParseError) Unwrap() error { return e.Cause }

func NewProjectParseError(path string, cause error) error {
	return errx.Classify(&ProjectParseError{Path: path, Cause: cause}, ErrProjectParse)
}

// InvalidScriptPathError mirrors PsqlpackErrorKind::InvalidScriptPath(path).
type InvalidScriptPathError struct {
	Path string
}

func (e *InvalidScriptPathError) Error() string {
	return fmt.Sprintf("invalid script path in project file: %s", e.Path)
}

func NewInvalidScriptPathError(path string) error {
	return errx.Classify(&InvalidScriptPathError{Path: path}, ErrInvalidScriptPath)
}

// PublishProfileReadError mirrors PublishProfileReadError(path).
type PublishProfileReadError struct {
	Path  string
	Cause error
}

func (e *PublishProfileReadError) Error() string {
	return fmt.Sprintf("couldn't read publish profile file: %s", e.Path)
}
func (e *PublishProfileReadError) Unwrap() error { return e.Cause }

func NewPublishProfileReadError(path string, cause error) error {
	return errx.Classify(&PublishProfileReadError{Path: path, Cause: cause}, ErrPublishProfileRead)
}

// PublishProfileParseError mirrors PublishProfileParseError(path).
type PublishProfileParseError struct {
	Path  string
	Cause error
}

func (e *PublishProfileParseError) Error() string {
	return fmt.Sprintf("couldn't parse publish profile file: %s", e.Path)
}
func (e *PublishProfileParseError) Unwrap() error { return e.Cause }

func NewPublishProfileParseError(path string, cause error) error {
	return errx.Classify(&PublishProfileParseError{Path: path, Cause: cause}, ErrPublishProfileParse)
}

// PackageReadError mirrors PackageReadError(path).
type PackageReadError struct {
	Path  string
	Cause error
}

func (e *PackageReadError) Error() string {
	return fmt.Sprintf("couldn't read package file: %s", e.Path)
}
func (e *PackageReadError) Unwrap() error { return e.Cause }

func NewPackageReadError(path string, cause error) error {
	return errx.Classify(&PackageReadError{Path: path, Cause: cause}, ErrPackageRead)
}

// PackageUnarchiveError mirrors PackageUnarchiveError(path).
type PackageUnarchiveError struct {
	Path  string
	Cause error
}

func (e *PackageUnarchiveError) Error() string {
	return fmt.Sprintf("couldn't unarchive package file: %s", e.Path)
}
func (e *PackageUnarchiveError) Unwrap() error { return e.Cause }

func NewPackageUnarchiveError(path string, cause error) error {
	return errx.Classify(&PackageUnarchiveError{Path: path, Cause: cause}, ErrPackageUnarchive)
}

// PackageInternalReadError mirrors PackageInternalReadError(entry_name).
type PackageInternalReadError struct {
	EntryName string
	Cause     error
}

func (e *PackageInternalReadError) Error() string {
	return fmt.Sprintf("couldn't read part of the package file: %s", e.EntryName)
}
func (e *PackageInternalReadError) Unwrap() error { return e.Cause }

func NewPackageInternalReadError(entryName string, cause error) error {
	return errx.Classify(&PackageInternalReadError{EntryName: entryName, Cause: cause}, ErrPackageInternalRead)
}

// IOError mirrors IOError(file, message).
type IOError struct {
	File    string
	Message string
	Cause   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("IO error when reading %s: %s", e.File, e.Message)
}
func (e *IOError) Unwrap() error { return e.Cause }

func NewIOError(file string, cause error) error {
	return errx.Classify(&IOError{File: file, Message: cause.Error(), Cause: cause}, ErrIO)
}

// SyntaxError mirrors SyntaxError(file, line, line_number, start_pos, end_pos)
// and renders the caret-underlined span the original formatter produced.
type SyntaxError struct {
	File       string
	Line       string
	LineNumber int
	StartCol   int
	EndCol     int
}

func (e *SyntaxError) Error() string {
	width := e.EndCol - e.StartCol
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("SQL syntax error encountered in %s on line %d:\n  %s\n  %s%s",
		e.File, e.LineNumber, e.Line, strings.Repeat(" ", e.StartCol), strings.Repeat("^", width))
}

func NewSyntaxError(file, line string, lineNumber, startCol, endCol int) error {
	return &SyntaxError{File: file, Line: line, LineNumber: lineNumber, StartCol: startCol, EndCol: endCol}
}

// ParserErrorKind mirrors lalrpop_util::ParseError's variants (§4.2).
type ParserErrorKind int

const (
	InvalidToken ParserErrorKind = iota
	UnrecognizedToken
	ExtraToken
	UserError
)

// ParserError is one entry of a ParseError(file, errors) aggregate.
type ParserError struct {
	Kind     ParserErrorKind
	Token    string
	Expected []string
	Message  string
	Line     int
	Column   int
}

func (e *ParserError) Error() string {
	switch e.Kind {
	case InvalidToken:
		return "invalid token"
	case UnrecognizedToken:
		if e.Token == "" {
			return "unexpected end of file"
		}
		return fmt.Sprintf("unexpected %s\n   expected one of:\n   %s", e.Token, strings.Join(e.Expected, ", "))
	case ExtraToken:
		return fmt.Sprintf("extra token detected: %s", e.Token)
	default:
		return e.Message
	}
}

// ParseError mirrors PsqlpackErrorKind::ParseError(file, errors).
type ParseError struct {
	File   string
	Errors []*ParserError
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "parser errors in %s:\n", e.File)
	for i, pe := range e.Errors {
		fmt.Fprintf(&sb, "%d: %s\n", i, pe.Error())
	}
	return sb.String()
}

func NewParseError(file string, errs []*ParserError) error {
	return &ParseError{File: file, Errors: errs}
}

// GenerationError mirrors GenerationError(message).
type GenerationError struct{ Message string }

func (e *GenerationError) Error() string { return fmt.Sprintf("error generating package: %s", e.Message) }

func NewGenerationError(format string, args ...interface{}) error {
	return errx.Classify(&GenerationError{Message: fmt.Sprintf(format, args...)}, ErrGeneration)
}

// FormatError mirrors FormatError(file, message).
type FormatError struct {
	File    string
	Message string
	Cause   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error when reading %s: %s", e.File, e.Message)
}
func (e *FormatError) Unwrap() error { return e.Cause }

func NewFormatError(file, message string, cause error) error {
	return errx.Classify(&FormatError{File: file, Message: message, Cause: cause}, ErrFormat)
}

// DatabaseError mirrors DatabaseError(message).
type DatabaseError struct {
	Message string
	Cause   error
}

func (e *DatabaseError) Error() string { return fmt.Sprintf("database error: %s", e.Message) }
func (e *DatabaseError) Unwrap() error { return e.Cause }

func NewDatabaseError(cause error) error {
	if cause == nil {
		return nil
	}
	return errx.Classify(&DatabaseError{Message: cause.Error(), Cause: cause}, ErrDatabase)
}

func NewDatabaseErrorf(format string, args ...interface{}) error {
	return errx.Classify(&DatabaseError{Message: fmt.Sprintf(format, args...)}, ErrDatabase)
}

// ProjectError mirrors ProjectError(message).
type ProjectError struct{ Message string }

func (e *ProjectError) Error() string { return fmt.Sprintf("project format error: %s", e.Message) }

func NewProjectError(format string, args ...interface{}) error {
	return errx.Classify(&ProjectError{Message: fmt.Sprintf(format, args...)}, ErrProject)
}

// MultipleErrors mirrors MultipleErrors(errors): an aggregate for batch
// operations (lex/parse accumulation, validation, policy rejection).
type MultipleErrors struct {
	Errors []error
}

func (e *MultipleErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("multiple errors:\n")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "--- Error %d ---\n%s\n", i, err.Error())
	}
	return sb.String()
}

// NewMultipleErrors returns nil if errs is empty, the single error if only
// one is present, and a *MultipleErrors otherwise — so callers can always
// write `if err := NewMultipleErrors(errs); err != nil { return err }`.
func NewMultipleErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &MultipleErrors{Errors: errs}
	}
}
