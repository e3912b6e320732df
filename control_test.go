package warpscript

import "testing"

func TestCheckSignalNoneByDefault(t *testing.T) {
	s := newTestStack(t)
	if err := s.checkSignal(); err != nil {
		t.Fatalf("checkSignal() on a fresh stack = %v, want nil", err)
	}
}

func TestStopSignalSelfClears(t *testing.T) {
	s := newTestStack(t)
	s.Signal(SignalStop)
	if err := s.checkSignal(); !IsStopSignal(err) {
		t.Fatalf("checkSignal() = %v, want a stop signal", err)
	}
	if err := s.checkSignal(); err != nil {
		t.Fatalf("checkSignal() after a stop = %v, want nil (stop clears itself)", err)
	}
}

func TestKillSignalStaysPending(t *testing.T) {
	s := newTestStack(t)
	s.Signal(SignalKill)
	if err := s.checkSignal(); !IsKillSignal(err) {
		t.Fatalf("checkSignal() = %v, want a kill signal", err)
	}
	if err := s.checkSignal(); !IsKillSignal(err) {
		t.Fatal("kill must stay pending across repeated checks")
	}
}

func TestSignalOrdinalOnlyRaises(t *testing.T) {
	s := newTestStack(t)
	s.Signal(SignalStop)
	s.Signal(SignalNone) // lower ordinal: must not clear the pending stop
	if err := s.checkSignal(); !IsStopSignal(err) {
		t.Fatal("a lower-ordinal signal must not overwrite a pending higher one")
	}
}

func TestStepChargesOneOp(t *testing.T) {
	s := newTestStack(t)
	before := s.CurrentOps()
	if err := s.step(); err != nil {
		t.Fatal(err)
	}
	if s.CurrentOps() != before+1 {
		t.Fatalf("ops after step() = %d, want %d", s.CurrentOps(), before+1)
	}
}
