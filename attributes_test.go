package warpscript

import "testing"

func TestSetMaxDepthAttribute(t *testing.T) {
	s := newTestStack(t)
	if err := s.SetAttribute(AttrMaxDepth, 5); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Push(Int(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Push(Int(99)); err == nil {
		t.Fatal("expected depth-exceeded error after lowering max_depth to 5")
	}
}

func TestSetMaxDepthCannotShrinkBelowCurrent(t *testing.T) {
	s := newTestStack(t)
	_ = s.PushN(Int(1), Int(2), Int(3))
	if err := s.SetAttribute(AttrMaxDepth, 1); err == nil {
		t.Fatal("expected an error shrinking max_depth below the current window")
	}
}

func TestSecureAttributeMonotonic(t *testing.T) {
	s := newTestStack(t)
	if err := s.SetAttribute(AttrInSecureMacro, true); err != nil {
		t.Fatal(err)
	}
	if !s.InSecureMacro() {
		t.Fatal("expected secure mode to be set")
	}
	if err := s.SetAttribute(AttrInSecureMacro, false); err != nil {
		t.Fatal(err)
	}
	if !s.InSecureMacro() {
		t.Fatal("secure mode must never be lowered by setting the attribute to false")
	}
}

func TestSecureAttributeRejectsExplicitLowering(t *testing.T) {
	s := newTestStack(t)
	if err := s.SetAttribute(AttrInSecureMacro, true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAttribute(AttrInSecureMacro, nil); err == nil {
		t.Fatal("expected an error attempting to clear in_secure_macro directly")
	}
}

func TestAttributeTypeMismatch(t *testing.T) {
	s := newTestStack(t)
	if err := s.SetAttribute(AttrMaxDepth, "not an int"); err == nil {
		t.Fatal("expected a type error for a non-int max_depth")
	}
}

func TestUnrecognizedAttributeStoredVerbatim(t *testing.T) {
	s := newTestStack(t)
	if err := s.SetAttribute("custom_key", 42); err != nil {
		t.Fatal(err)
	}
	v, ok := s.GetAttribute("custom_key")
	if !ok || v != 42 {
		t.Fatalf("GetAttribute(custom_key) = %v, %v; want 42, true", v, ok)
	}
}
