package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in the bootstrap the error occurred
type Phase string

const (
	PhaseRegister  Phase = "register"  // property registration
	PhaseResolve   Phase = "resolve"   // permutation selection
	PhaseHandshake Phase = "handshake" // connector discovery and connect
	PhaseSession   Phase = "session"   // bridge session lifecycle
	PhaseBootstrap Phase = "bootstrap" // orchestration
	PhaseConfig    Phase = "config"    // meta tags, manifests, config files
	PhaseInvoke    Phase = "invoke"    // cross-boundary call adapters
	PhaseLoad      Phase = "load"      // plugin module loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindDuplicate         Kind = "duplicate"
	KindNotFound          Kind = "not_found"
	KindInvalidValue      Kind = "invalid_value"
	KindIncompleteTable   Kind = "incomplete_table"
	KindConnectionRefused Kind = "connection_refused"
	KindPluginAbsent      Kind = "plugin_absent"
	KindDisconnected      Kind = "disconnected"
	KindConfigParse       Kind = "config_parse"
	KindArity             Kind = "arity"
	KindException         Kind = "exception"
	KindInvalidState      Kind = "invalid_state"
	KindInstantiation     Kind = "instantiation"
)

// Error is the structured error type used throughout the loader
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Subject string
	Detail  string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Subject != "" {
		b.WriteString(" for ")
		b.WriteString(e.Subject)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Subject sets the name of the thing the error is about
func (b *Builder) Subject(s string) *Builder {
	b.err.Subject = s
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// PropertyError reports a provider value outside the property's legal set.
// Allowed is sorted.
type PropertyError struct {
	Name    string
	Value   string
	Allowed []string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("[resolve] invalid_value for %s: %q is not one of [%s]",
		e.Name, e.Value, strings.Join(e.Allowed, ", "))
}

// Is reports whether target matches this error type
func (e *PropertyError) Is(target error) bool {
	_, ok := target.(*PropertyError)
	return ok
}

// ConnectionError reports a connector that was found but refused to connect.
type ConnectionError struct {
	Cause      error
	CodeServer string
	Module     string
	Connector  string
}

func (e *ConnectionError) Error() string {
	var b strings.Builder
	b.WriteString("[handshake] connection_refused: plugin failed to connect to code server at ")
	b.WriteString(e.CodeServer)
	if e.Connector != "" {
		b.WriteString(" via ")
		b.WriteString(e.Connector)
	}
	if e.Module != "" {
		b.WriteString(" (module ")
		b.WriteString(e.Module)
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type
func (e *ConnectionError) Is(target error) bool {
	_, ok := target.(*ConnectionError)
	return ok
}

// Convenience constructors for common error patterns

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindNotFound,
		Subject: name,
		Detail:  fmt.Sprintf("%s %q not found", what, name),
	}
}

// Duplicate creates a duplicate registration error
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindDuplicate,
		Subject: name,
		Detail:  fmt.Sprintf("%s %q already registered", what, name),
	}
}

// IncompleteTable reports a permutation path that does not end in a leaf.
func IncompleteTable(path []string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindIncompleteTable,
		Value:  path,
		Detail: fmt.Sprintf("no permutation for [%s]", strings.Join(path, ", ")),
	}
}

// PluginAbsent reports that no connector candidate was present.
func PluginAbsent(module string) *Error {
	return &Error{
		Phase:   PhaseHandshake,
		Kind:    KindPluginAbsent,
		Subject: module,
		Detail:  "no connector found",
	}
}

// UnexpectedDisconnect reports that the code server closed a live session.
func UnexpectedDisconnect(sessionID string) *Error {
	return &Error{
		Phase:   PhaseSession,
		Kind:    KindDisconnected,
		Subject: sessionID,
		Detail:  "code server disconnected",
	}
}

// ConfigParse reports a malformed configuration entry.
func ConfigParse(name, content string, cause error) *Error {
	return &Error{
		Phase:   PhaseConfig,
		Kind:    KindConfigParse,
		Subject: name,
		Value:   content,
		Detail:  fmt.Sprintf("bad handler %q", content),
		Cause:   cause,
	}
}

// InvalidState reports an illegal state machine transition.
func InvalidState(phase Phase, from, to string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidState,
		Detail: fmt.Sprintf("cannot move from %s to %s", from, to),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a plugin module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// IsPropertyResolution reports whether err carries a *PropertyError.
func IsPropertyResolution(err error) bool {
	var pe *PropertyError
	return stderrors.As(err, &pe)
}

// IsConnectionRefused reports whether err carries a *ConnectionError.
func IsConnectionRefused(err error) bool {
	var ce *ConnectionError
	return stderrors.As(err, &ce)
}

// IsPluginAbsent reports whether err is a plugin absence.
func IsPluginAbsent(err error) bool {
	return hasKind(err, KindPluginAbsent)
}

// IsConfigParse reports whether err is a configuration parse failure.
func IsConfigParse(err error) bool {
	return hasKind(err, KindConfigParse)
}

func hasKind(err error, kind Kind) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
