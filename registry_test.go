package warpscript

import "testing"

func TestSetNameAttributeRegisters(t *testing.T) {
	s := newTestStack(t)
	defer s.Unregister()
	if err := s.SetAttribute(AttrName, "my-stack"); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, info := range RegistrySnapshot() {
		if info.ID == s.ID {
			found = true
			if info.Name != "my-stack" {
				t.Fatalf("registered name = %q, want my-stack", info.Name)
			}
		}
	}
	if !found {
		t.Fatal("stack was not registered after setting the name attribute")
	}
}

func TestUnregisterRemovesFromSnapshot(t *testing.T) {
	s := newTestStack(t)
	if err := s.SetAttribute(AttrName, "transient"); err != nil {
		t.Fatal(err)
	}
	s.Unregister()
	for _, info := range RegistrySnapshot() {
		if info.ID == s.ID {
			t.Fatal("stack still present in registry after Unregister")
		}
	}
}

func TestPrivateRegistryIsolated(t *testing.T) {
	r := NewRegistry()
	if len(r.Snapshot()) != 0 {
		t.Fatal("a fresh private registry should start empty")
	}
}
