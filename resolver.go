package warpscript

import "context"

// FindFunction resolves name per §4.6's chain: the redefinition table
// (unless AllowRedefinedFunctions is false), then the external library,
// then unknown-function.
func (s *Stack) FindFunction(name string) (*FunctionRef, error) {
	if s.cfg.AllowRedefinedFunctions {
		if ref, ok := s.redefined.get(name); ok {
			return ref, nil
		}
	}
	if s.library != nil {
		if ref, ok := s.library.Lookup(name); ok {
			return ref, nil
		}
	}
	return nil, resolutionErrorf("unknown function '%s'", name)
}

// FindMacro resolves a named macro per §4.5/§6's chain: the stack's own
// symbol table first (a macro value bound to name), then the configured
// MacroRepository (itself typically a chain built with
// NewChainRepository covering the in-process repository, the library,
// the fleet repository, and any extension resolver).
func (s *Stack) FindMacro(ctx context.Context, name string) (*Macro, error) {
	if v, ok := s.symbols.Load(name); ok {
		if m, ok := v.(*Macro); ok {
			return m, nil
		}
	}
	if s.macroRepo != nil {
		if m, ok := s.macroRepo.ResolveMacro(ctx, name); ok {
			return m, nil
		}
	}
	return nil, resolutionErrorf("unknown macro '%s'", name)
}
