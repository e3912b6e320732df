package warpscript

import "testing"

func TestStackContextExcludesValues(t *testing.T) {
	s := newTestStack(t)
	_ = s.Push(Int(1))
	_ = s.Push(Int(2))
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	// Save pushes the context on top; it must not otherwise touch the
	// existing stack contents.
	if s.Depth() != 3 {
		t.Fatalf("depth after Save = %d, want 3", s.Depth())
	}
	ctxVal, _ := s.Pop()
	if _, ok := ctxVal.(*StackContext); !ok {
		t.Fatalf("top after Save = %T, want *StackContext", ctxVal)
	}
	if s.Depth() != 2 {
		t.Fatalf("depth after popping the context = %d, want 2 (values untouched)", s.Depth())
	}
}

func TestStackContextRestoreIgnoresAttributes(t *testing.T) {
	s := newTestStack(t)
	if err := s.SetAttribute(AttrSectionName, "before"); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAttribute(AttrSectionName, "after"); err != nil {
		t.Fatal(err)
	}
	if err := s.Restore(); err != nil {
		t.Fatal(err)
	}
	if s.Section() != "after" {
		t.Fatalf("section after Restore = %q, want %q (Restore must not touch attributes)", s.Section(), "after")
	}
}
