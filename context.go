package warpscript

// StackContext is an opaque snapshot of a stack's symbol table, register
// file, and redefinition table, pushed by Save and consumed by Restore
// per §4.7. It deliberately excludes the stack's own values, the
// attribute map, and the configured limits.
type StackContext struct {
	symbols    map[string]Value
	registers  []Value
	redefined  map[string]*FunctionRef
}

func (*StackContext) isValue() {}

func (*StackContext) String() string { return "<context>" }

// Save snapshots the symbol table, register file, and redefinition table
// into a StackContext and pushes it, per §4.7.
func (s *Stack) Save() error {
	ctx := &StackContext{
		symbols:   s.symbols.snapshot(),
		registers: s.registersSnapshot(),
		redefined: s.redefined.snapshot(),
	}
	return s.Push(ctx)
}

// RestoreContext overwrites the symbol table, register file, and
// redefinition table from ctx, per §4.7's restore(ctx).
func (s *Stack) RestoreContext(ctx *StackContext) {
	s.symbols.restore(ctx.symbols)
	s.restoreRegisters(ctx.registers)
	s.redefined.restore(ctx.redefined)
}

// Restore pops a StackContext from the top and applies it, failing if the
// top is not a context, per §4.7's restore().
func (s *Stack) Restore() error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	ctx, ok := v.(*StackContext)
	if !ok {
		return typeErrorf("restore: top of stack is not a context (got %s)", typeName(v))
	}
	s.RestoreContext(ctx)
	return nil
}
