package warpscript

// symbolTable is the name→Value mapping used by STORE/LOAD (§4.5),
// bounded by a symbol count limit checked on every store.
type symbolTable struct {
	entries map[string]Value
	limit   int
}

func newSymbolTable(limit int) *symbolTable {
	return &symbolTable{entries: make(map[string]Value), limit: limit}
}

// Load returns the value bound to name, or (nil, false) if absent.
func (t *symbolTable) Load(name string) (Value, bool) {
	v, ok := t.entries[name]
	return v, ok
}

// Store binds name to v, failing if the table is full and name is new,
// per §3's "inserting beyond the limit fails".
func (t *symbolTable) Store(name string, v Value) error {
	if _, exists := t.entries[name]; !exists && len(t.entries) >= t.limit {
		return budgetErrorf("symbol table full (%d entries)", t.limit)
	}
	t.entries[name] = v
	return nil
}

// Forget removes name; ForgetAll clears the table, per §4.5's
// "forget(null) clears all".
func (t *symbolTable) Forget(name string) {
	delete(t.entries, name)
}

func (t *symbolTable) ForgetAll() {
	t.entries = make(map[string]Value)
}

func (t *symbolTable) Size() int {
	return len(t.entries)
}

// snapshot returns a shallow copy of the table's contents, used by
// save/restore (§4.7).
func (t *symbolTable) snapshot() map[string]Value {
	out := make(map[string]Value, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

func (t *symbolTable) restore(snap map[string]Value) {
	t.entries = make(map[string]Value, len(snap))
	for k, v := range snap {
		t.entries[k] = v
	}
}

// Load and Store on the Stack expose the symbol table to the parser and
// executor, and are what the LOAD/STORE stack-functions would call
// through.

// Load returns the value bound to name in the stack's symbol table.
func (s *Stack) Load(name string) (Value, bool) {
	return s.symbols.Load(name)
}

// Store binds name to v in the stack's symbol table.
func (s *Stack) Store(name string, v Value) error {
	return s.symbols.Store(name, v)
}

// Forget removes name from the symbol table, or clears the whole table
// when name is the empty string (the engine's stand-in for "null" at the
// Go API boundary, since map keys can't be absent).
func (s *Stack) Forget(name string) {
	if name == "" {
		s.symbols.ForgetAll()
		return
	}
	s.symbols.Forget(name)
}

// SymbolCount returns the number of bound symbols.
func (s *Stack) SymbolCount() int {
	return s.symbols.Size()
}
