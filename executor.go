package warpscript

import (
	"context"
	"time"
)

// Exec runs a compiled macro against the stack, following the exact
// cycle described in §4.3:
//
//  1. Increment the op counter for the invocation and the recursion
//     counter, failing if the recursion limit is exceeded.
//  2. Save the caller's section, macro name, and secure-mode flag.
//  3. Escalate secure-mode monotonically: inSecureMacro ← S ∨ macro.Secure.
//  4. Iterate entries in order, checking the pending signal and charging
//     one operation before each.
//  5. On normal completion, the op budget has already been enforced by
//     every intervening step() call.
//  6. A return exception unwinds exactly this frame and is swallowed;
//     stop/kill propagate unchanged; any other error is wrapped with the
//     failing statement, the section, and the macro name unless the
//     frame (or an enclosing one) is secure.
//  7. Restore secure-mode, decrement recursion, restore section/macro
//     name, and update the macro's calls/time metrics — always, even on
//     error.
func (s *Stack) Exec(ctx context.Context, m *Macro) (err error) {
	start := time.Now()

	if err := s.counters.incOps(1); err != nil {
		return err
	}
	if err := s.recurseIn(); err != nil {
		return err
	}

	savedSection := s.section
	savedMacroName := s.macroName
	savedSecure := s.enterSecure(m.IsSecure())
	if m.Name != "" {
		s.macroName = m.Name
	}

	defer func() {
		s.leaveSecure(savedSecure)
		s.recurseOut()
		s.section = savedSection
		s.macroName = savedMacroName
		m.recordCall(time.Since(start).Nanoseconds())
	}()

	for _, entry := range m.Entries {
		if err := s.step(); err != nil {
			return s.finishExecError(err, entry, m)
		}
		if err := s.execEntry(ctx, entry); err != nil {
			if _, ok := err.(*returnException); ok {
				// A return unwinds exactly this frame; §4.3 step 6.
				return nil
			}
			return s.finishExecError(err, entry, m)
		}
	}
	return nil
}

// finishExecError applies §4.3 step 6's wrapping rule: asynchronous
// control signals propagate unchanged; everything else is wrapped with
// the failing statement, section, and macro name, unless the current
// frame is secure, in which case the raw cause propagates without
// disclosure.
func (s *Stack) finishExecError(err error, entry MacroEntry, m *Macro) error {
	if isAsyncControl(err) {
		return err
	}
	if s.inSecureMacro {
		return err
	}
	statement := entry.Source
	if statement == "" {
		statement = describeEntry(entry)
	}
	if s.audit != nil {
		if stmt, ok := s.demote(err, statement, s.lastErrorPosition, macroDepthHint(m)); ok {
			_ = stmt
			return nil
		}
	}
	return wrapExecError(err, statement, s.section, m.Name)
}

func describeEntry(entry MacroEntry) string {
	switch entry.Kind {
	case EntryLiteral:
		return entry.Literal.String()
	case EntryFunctionRef:
		return entry.FunctionRef.String()
	case EntryMacro:
		return entry.Macro.String()
	case EntryDeferredLoad:
		return "$" + entry.Name
	case EntryDeferredRun:
		return "@" + entry.Name
	case EntryAudit:
		return entry.Audit.Statement
	default:
		return "?"
	}
}

// macroDepthHint reports whether m itself should be treated as "a macro
// is open" for audit-mode demotion purposes. Exec always runs inside at
// least one macro frame, so demotion is available whenever audit mode is
// enabled during execution.
func macroDepthHint(m *Macro) int {
	return 1
}

// execEntry dispatches a single compiled statement, per §4.3 step 4 and
// §4.2's per-context token behavior: a function reference is applied
// immediately if it is callable, otherwise pushed as a value; a literal
// is pushed; a nested macro is pushed as a value (its own EVAL/RUN
// invokes Exec on it); deferred-load/run entries resolve their symbol at
// execution time.
func (s *Stack) execEntry(ctx context.Context, entry MacroEntry) error {
	switch entry.Kind {
	case EntryLiteral:
		return s.Push(entry.Literal)
	case EntryMacro:
		return s.Push(entry.Macro)
	case EntryFunctionRef:
		return s.applyRef(ctx, entry.FunctionRef)
	case EntryDeferredLoad:
		v, ok := s.Load(entry.Name)
		if !ok {
			return resolutionErrorf("unknown symbol '%s'", entry.Name)
		}
		return s.Push(v)
	case EntryDeferredRun:
		m, err := s.FindMacro(ctx, entry.Name)
		if err != nil {
			return err
		}
		return s.Exec(ctx, m)
	case EntryAudit:
		// An audit statement replaces a demoted failure; it is a no-op on
		// re-execution, matching the original's "recorded, not aborted"
		// behavior.
		return nil
	default:
		return newError(KindInternal, "unknown macro entry kind %d", entry.Kind)
	}
}

// applyRef applies ref immediately if it wraps a StackFunction, otherwise
// pushes its constant value, per §4.2's "if it is a stack-function it is
// applied immediately, otherwise it is pushed as a value."
func (s *Stack) applyRef(ctx context.Context, ref *FunctionRef) error {
	if !ref.IsCallable() {
		return s.Push(ref.Const)
	}
	start := time.Now()
	err := ref.Fn.Apply(ctx, s)
	if s.telemetry != nil {
		s.telemetry.RecordCall(ref.Fn.Name(), time.Since(start).Nanoseconds(), err)
	}
	return err
}
