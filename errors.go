package warpscript

import "fmt"

// ErrorKind classifies a ScriptError the way §7 of the specification
// groups failures: parse, resolution, type, budget, capability, and
// control-flow signals (the last of which never becomes a ScriptError —
// see signal.go).
type ErrorKind string

const (
	KindParse      ErrorKind = "parse"
	KindResolution ErrorKind = "resolution"
	KindType       ErrorKind = "type"
	KindBudget     ErrorKind = "budget"
	KindCapability ErrorKind = "capability"
	KindInternal   ErrorKind = "internal"
)

// SourcePosition locates a token or statement within a script, and, once a
// message has been framed by exec or the parser, carries the ±30-character
// "=>…<=" window described in §4.2 plus the section/macro names in effect
// at the time of the failure.
type SourcePosition struct {
	Line     int
	Column   int
	Section  string
	Macro    string
	Window   string
}

// ScriptError is the engine's error type. It carries enough context to
// reproduce the position-framed messages described in §4.2 and §7 without
// forcing every caller to type-assert into engine internals.
type ScriptError struct {
	Kind     ErrorKind
	Message  string
	Position *SourcePosition
	Cause    error
}

func (e *ScriptError) Error() string {
	if e.Position != nil && e.Position.Window != "" {
		section := e.Position.Section
		if section == "" {
			section = TopLevelSection
		}
		return fmt.Sprintf("%s in section %s", e.Position.Window, section)
	}
	return e.Message
}

func (e *ScriptError) Unwrap() error { return e.Cause }

// newError builds a ScriptError of the given kind.
func newError(kind ErrorKind, format string, args ...interface{}) *ScriptError {
	return &ScriptError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func parseErrorf(format string, args ...interface{}) *ScriptError {
	return newError(KindParse, format, args...)
}

func resolutionErrorf(format string, args ...interface{}) *ScriptError {
	return newError(KindResolution, format, args...)
}

func typeErrorf(format string, args ...interface{}) *ScriptError {
	return newError(KindType, format, args...)
}

func budgetErrorf(format string, args ...interface{}) *ScriptError {
	return newError(KindBudget, format, args...)
}

// CapabilityError reports a missing capability, raised by individual
// functions and only ever surfaced (never interpreted) by the engine, per
// §7's Capability errors.
func CapabilityError(capability string) *ScriptError {
	return newError(KindCapability, "capability %q is required", capability)
}

// TopLevelSection is the default section name a freshly created Stack
// starts with.
const TopLevelSection = "<top>"

// frameError rewrites err into a ScriptError carrying the ±window position
// text described in §4.2, unless the failure already carries a position
// (nested exec frames only add their own name once, at the outermost
// wrapping point) or is a control-flow signal, which must never be framed.
func frameError(err error, line string, tokenStart, tokenEnd int, section string) error {
	if err == nil {
		return nil
	}
	if isControlSignal(err) {
		return err
	}
	se, _ := err.(*ScriptError)
	if se == nil {
		se = &ScriptError{Kind: KindInternal, Message: err.Error(), Cause: err}
	} else if se.Position != nil && se.Position.Window != "" {
		return se
	}
	if tokenStart < 0 {
		tokenStart = 0
	}
	if tokenStart >= len(line) && len(line) > 0 {
		tokenStart = len(line) - 1
	}
	if tokenEnd < tokenStart {
		tokenEnd = tokenStart
	}
	if tokenEnd > len(line) {
		tokenEnd = len(line)
	}
	start := tokenStart - 30
	if start < 0 {
		start = 0
	}
	end := tokenEnd + 30
	if end > len(line) {
		end = len(line)
	}
	window := line[start:tokenStart] + "=>" + line[tokenStart:tokenEnd] + "<=" + line[tokenEnd:end]
	se.Position = &SourcePosition{Section: section, Window: fmt.Sprintf("Exception at '%s'", window)}
	return se
}

// wrapExecError frames an execution-time error with the failing
// statement's description, the section name, and the macro name, per
// §4.3 step 6. The wrapped error carries no source position.
func wrapExecError(err error, statement, section, macroName string) error {
	if err == nil || isControlSignal(err) {
		return err
	}
	msg := fmt.Sprintf("Exception at '%s' in section '%s'", statement, section)
	if macroName != "" {
		msg += fmt.Sprintf(" called from macro '%s'", macroName)
	}
	return &ScriptError{Kind: KindInternal, Message: msg, Cause: err}
}
