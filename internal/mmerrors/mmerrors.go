// Package mmerrors contains the errors that a monmsg run can produce, along
// with helpers for getting the message that should be shown to a user for
// them.
package mmerrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputUnavailable is matched by any error caused by an input source
	// that could not be read.
	ErrInputUnavailable = errors.New("input unavailable")

	// ErrMalformedRule is matched by any error caused by a rule line that does
	// not parse or a rule table that is inconsistent.
	ErrMalformedRule = errors.New("malformed rule")

	// ErrUnresolvedGrammar is matched by the warning given when reduction
	// reaches a fixpoint without resolving the target rule.
	ErrUnresolvedGrammar = errors.New("grammar not fully resolved")

	// ErrCyclicGrammar is returned when expansion is attempted on a grammar
	// whose target reaches a cycle and no bound has been given.
	ErrCyclicGrammar = errors.New("grammar is cyclic")

	// ErrExpansionLimit is returned when a rewrite would produce more
	// alternatives than the configured maximum.
	ErrExpansionLimit = errors.New("alternative limit exceeded")

	// ErrStrategyMismatch is returned when the two resolution strategies
	// disagree on the derived set.
	ErrStrategyMismatch = errors.New("strategies disagree")

	// ErrUnknownRule is returned when an operation names a rule that is not in
	// the table.
	ErrUnknownRule = errors.New("no such rule")
)

// InputUnavailableError is returned when an input source cannot be read.
type InputUnavailableError struct {
	Path string
	Err  error
}

func (e *InputUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("read %s: %s", e.Path, ErrInputUnavailable.Error())
	}
	return fmt.Sprintf("read %s: %s", e.Path, e.Err.Error())
}

func (e *InputUnavailableError) Unwrap() error {
	return e.Err
}

func (e *InputUnavailableError) Is(target error) bool {
	return target == ErrInputUnavailable
}

// InputUnavailable returns a new *InputUnavailableError for the given path.
func InputUnavailable(path string, err error) error {
	return &InputUnavailableError{Path: path, Err: err}
}

// MalformedRuleError is returned when a rule line does not parse. Line is the
// 1-based line number in the input, or 0 if the rule did not come from a
// numbered input (such as an override).
type MalformedRuleError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRuleError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s %q: %s", e.Line, ErrMalformedRule.Error(), e.Text, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", ErrMalformedRule.Error(), e.Text, e.Reason)
}

func (e *MalformedRuleError) Is(target error) bool {
	return target == ErrMalformedRule
}

// MalformedRule returns a new *MalformedRuleError. The reason is given as a
// format string followed by its arguments.
func MalformedRule(line int, text string, reasonFormat string, a ...interface{}) error {
	return &MalformedRuleError{
		Line:   line,
		Text:   text,
		Reason: fmt.Sprintf(reasonFormat, a...),
	}
}

// UnresolvedGrammarWarning is given when reduction reaches a fixpoint with
// rules remaining that are not literal-only. IDs and Bodies are parallel;
// Bodies[i] is the partially reduced rendering of rule IDs[i].
//
// It is a warning and not a failure; whatever result accompanies it is
// partial.
type UnresolvedGrammarWarning struct {
	IDs    []int
	Bodies []string
}

func (w *UnresolvedGrammarWarning) Error() string {
	ids := make([]string, len(w.IDs))
	for i := range w.IDs {
		ids[i] = fmt.Sprintf("%d", w.IDs[i])
	}
	return fmt.Sprintf("%s: %d rule(s) remain: %s", ErrUnresolvedGrammar.Error(), len(w.IDs), strings.Join(ids, ", "))
}

func (w *UnresolvedGrammarWarning) Is(target error) bool {
	return target == ErrUnresolvedGrammar
}

// Listing gives the diagnostic listing of every unresolved rule, one per line.
func (w *UnresolvedGrammarWarning) Listing() string {
	var sb strings.Builder
	for i := range w.Bodies {
		sb.WriteString(w.Bodies[i])
		if i+1 < len(w.Bodies) {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}

// CycleError is returned when the target rule reaches a cycle of rule
// references. Path starts and ends with the same rule id.
type CycleError struct {
	Path []int
}

func (e *CycleError) Error() string {
	steps := make([]string, len(e.Path))
	for i := range e.Path {
		steps[i] = fmt.Sprintf("%d", e.Path[i])
	}
	return fmt.Sprintf("%s: %s", ErrCyclicGrammar.Error(), strings.Join(steps, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicGrammar
}

// userError is an error that carries a message meant for the person at the
// prompt alongside the more technical description of the error.
type userError struct {
	msg   string
	human string
	wrap  error
}

func (e *userError) Error() string {
	return e.msg
}

// UserMessage shows the message that should be displayed to the user to
// describe the error.
func (e *userError) UserMessage() string {
	return e.human
}

func (e *userError) Unwrap() error {
	return e.wrap
}

// User returns a new error that has both the message to show the user and the
// technical description of the error.
func User(human, technical string) error {
	if technical == "" {
		technical = fmt.Sprintf("got UserError(%q)", human)
	}
	return &userError{
		msg:   technical,
		human: human,
	}
}

// Userf returns a new user error with an automatically generated Error()
// description.
func Userf(humanFormat string, a ...interface{}) error {
	return User(fmt.Sprintf(humanFormat, a...), "")
}

// WrapUser returns a new user error that wraps the given error. The technical
// description is taken from the wrapped error.
func WrapUser(e error, human string) error {
	return &userError{
		msg:   e.Error(),
		human: human,
		wrap:  e,
	}
}

// Message gets the message to display to the user for the given error. If
// anything in its chain is a user error, that message is returned. Otherwise,
// err.Error() is returned.
func Message(err error) string {
	var uErr *userError
	if errors.As(err, &uErr) {
		return uErr.UserMessage()
	}
	return err.Error()
}
