package warpscript

import (
	"context"
	"testing"
)

func TestAuditDisabledByDefault(t *testing.T) {
	s := newTestStack(t)
	if s.AuditEnabled() {
		t.Fatal("audit mode should be disabled by default")
	}
}

func TestAuditLogResetsOnNextOutermostMacro(t *testing.T) {
	s := newTestStack(t)
	if err := s.SetAttribute(AttrAuditMode, true); err != nil {
		t.Fatal(err)
	}
	if err := Parse(context.Background(), s, "<% NOSUCHFUNCTION %>"); err != nil {
		t.Fatal(err)
	}
	if len(s.AuditLog()) != 1 {
		t.Fatalf("audit log = %d entries, want 1 after the macro closed", len(s.AuditLog()))
	}
	// A fresh top-level macro after the first one closed resets the
	// observable log when it opens.
	if err := Parse(context.Background(), s, "<% ANOTHERBOGUSNAME %>"); err != nil {
		t.Fatal(err)
	}
	if len(s.AuditLog()) != 1 {
		t.Fatalf("audit log = %d entries, want 1 (reset between macros)", len(s.AuditLog()))
	}
}

func TestAuditDoesNotDemoteTypeErrors(t *testing.T) {
	s := newTestStack(t)
	if err := s.SetAttribute(AttrAuditMode, true); err != nil {
		t.Fatal(err)
	}
	m := macroOf(t, s, "<% 1 'x' + %>")
	err := s.Exec(context.Background(), m)
	if err == nil {
		t.Fatal("type errors must not be demoted by audit mode")
	}
}
