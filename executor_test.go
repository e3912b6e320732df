package warpscript

import (
	"context"
	"testing"
)

func macroOf(t *testing.T, s *Stack, src string) *Macro {
	t.Helper()
	if err := Parse(context.Background(), s, src); err != nil {
		t.Fatal(err)
	}
	v, err := s.Pop()
	if err != nil {
		t.Fatal(err)
	}
	m, ok := v.(*Macro)
	if !ok {
		t.Fatalf("parsed value = %T, want *Macro", v)
	}
	return m
}

func TestExecRunsEntries(t *testing.T) {
	s := newTestStack(t)
	m := macroOf(t, s, "<% 1 2 + %>")
	if err := s.Exec(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	top, _ := s.Peek()
	if top != Int(3) {
		t.Fatalf("top = %v, want 3", top)
	}
}

func TestExecReturnUnwindsOneFrame(t *testing.T) {
	s := newTestStack(t)
	m := macroOf(t, s, "<% 1 RETURN 2 %>")
	if err := s.Exec(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if s.Depth() != 1 {
		t.Fatalf("depth = %d, want 1 (statement after RETURN must not run)", s.Depth())
	}
	top, _ := s.Peek()
	if top != Int(1) {
		t.Fatalf("top = %v, want 1", top)
	}
}

func TestExecStopPropagates(t *testing.T) {
	s := newTestStack(t)
	m := macroOf(t, s, "<% 1 STOP 2 %>")
	err := s.Exec(context.Background(), m)
	if !IsStopSignal(err) {
		t.Fatalf("err = %v, want a stop signal", err)
	}
	if s.Depth() != 1 {
		t.Fatalf("depth = %d, want 1 (statement after STOP must not run)", s.Depth())
	}
}

func TestExecKillPropagatesThroughNesting(t *testing.T) {
	s := newTestStack(t)
	inner := macroOf(t, s, "<% KILL %>")
	if err := s.Store("inner", inner); err != nil {
		t.Fatal(err)
	}
	outer := macroOf(t, s, "<% $inner EVAL 42 %>")
	err := s.Exec(context.Background(), outer)
	if !IsKillSignal(err) {
		t.Fatalf("err = %v, want a kill signal", err)
	}
	if s.Depth() != 0 {
		t.Fatalf("depth = %d, want 0 (statement after nested KILL must not run)", s.Depth())
	}
}

func TestExecSecureModeOpaqueError(t *testing.T) {
	s := newTestStack(t)
	m := macroOf(t, s, "<% 1 'x' 'y' + %>") // 'x' + 'y' is a type error
	m.MarkSecure(true)
	err := s.Exec(context.Background(), m)
	if err == nil {
		t.Fatal("expected an error from the type mismatch inside the secure macro")
	}
	// The raw type error must come back as is: a wrapped error would be a
	// KindInternal ScriptError describing the failing statement.
	if se, ok := err.(*ScriptError); !ok || se.Kind != KindType {
		t.Fatalf("secure macro did not propagate the raw type error unwrapped: %v", err)
	}
}

func TestExecNonSecureErrorIsWrapped(t *testing.T) {
	s := newTestStack(t)
	m := macroOf(t, s, "<% 'x' 'y' + %>")
	err := s.Exec(context.Background(), m)
	if err == nil {
		t.Fatal("expected an error")
	}
	se, ok := err.(*ScriptError)
	if !ok {
		t.Fatalf("err = %T, want *ScriptError (wrapped)", err)
	}
	if se.Message == "" {
		t.Fatal("wrapped error message is empty")
	}
}

func TestExecRecursionLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRecursion = 3
	s := NewStack(cfg, NewStdlib(), nil)
	self := NewMacro()
	self.Name = "loop"
	if err := s.Store("loop", self); err != nil {
		t.Fatal(err)
	}
	self.Append(MacroEntry{Kind: EntryDeferredRun, Name: "loop", Source: "@loop"})
	err := s.Exec(context.Background(), self)
	if err == nil {
		t.Fatal("expected a recursion-limit error for unbounded self-recursion")
	}
	if s.CurrentRecursion() != 0 {
		t.Fatalf("reclevel after a rejected recursion = %d, want 0 (recurseIn must undo its own increment on the error path)", s.CurrentRecursion())
	}
}

func TestExecOpBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxOps = 3
	s := NewStack(cfg, NewStdlib(), nil)
	m := macroOf2(t, s, cfg, "<% 1 2 3 4 5 %>")
	err := s.Exec(context.Background(), m)
	if err == nil {
		t.Fatal("expected an op-budget error")
	}
}

// macroOf2 compiles the macro on a separate, unlimited scratch stack, so
// s's op budget is untouched by compilation and the budget assertion
// exercises Exec's own step() charges rather than the parser's.
func macroOf2(t *testing.T, s *Stack, cfg *Config, src string) *Macro {
	t.Helper()
	scratch := NewStack(MaxLimits(), NewStdlib(), nil)
	m := macroOf(t, scratch, src)
	return m
}

func TestApplyRefConstantPushesValue(t *testing.T) {
	s := newTestStack(t)
	if err := Parse(context.Background(), s, "PI"); err != nil {
		t.Fatal(err)
	}
	top, err := s.Peek()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := top.(Float); !ok {
		t.Fatalf("PI pushed %T, want Float", top)
	}
}
