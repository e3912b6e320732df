package warpscript

import (
	"context"
	"fmt"
)

// simpleFn adapts a plain function into a StackFunction, the way the
// teacher's stdlib registers built-ins as small closures under a name.
type simpleFn struct {
	name string
	fn   func(ctx context.Context, s *Stack) error
}

func (f *simpleFn) Name() string { return f.name }
func (f *simpleFn) Apply(ctx context.Context, s *Stack) error {
	return f.fn(ctx, s)
}

// mapLibrary is a minimal, in-memory FunctionLibrary keyed by name — the
// simplest thing satisfying the FunctionLibrary interface, useful as the
// default for embedders and as the base a host extends with its own
// catalog (arithmetic, time-series access, I/O, ...), which per §1 stay
// out of the engine's scope.
type mapLibrary struct {
	entries map[string]*FunctionRef
}

// NewStdlib returns a small built-in FunctionLibrary covering the
// stack-manipulation and control-flow surface the engine itself must be
// able to exercise end-to-end (§8's testable scenarios all round-trip
// through STORE/EVAL/arithmetic), without reaching into any external
// collaborator (time-series store, secret manager, ...) that §1 keeps
// out of scope. Hosts embedding the engine are expected to wrap this
// with NewChainLibrary alongside their own domain catalog.
func NewStdlib() FunctionLibrary {
	lib := &mapLibrary{entries: make(map[string]*FunctionRef)}
	for _, fn := range []*simpleFn{
		{"+", opAdd}, {"-", opSub}, {"*", opMul}, {"/", opDiv},
		{"==", opCompare(opEQ)}, {"!=", opCompare(opNE)},
		{"<", opCompare(opLT)}, {"<=", opCompare(opLE)},
		{">", opCompare(opGT)}, {">=", opCompare(opGE)},
		{"DEPTH", opDepth}, {"CLEAR", opClear}, {"DROP", opDrop},
		{"DUP", opDup}, {"SWAP", opSwap}, {"ROT", opRot},
		{"STORE", opStore}, {"LOAD", opLoad}, {"FORGET", opForget},
		{"EVAL", opEval}, {"RUN", opEval}, {"SAVE", opSave}, {"RESTORE", opRestore},
		{"RETURN", opReturn}, {"STOP", opStop}, {"KILL", opKill},
		{"NOT", opNot}, {"AND", opAnd}, {"OR", opOr},
		{"TOSTRING", opToString},
	} {
		lib.entries[fn.name] = NewStackFunctionRef(fn)
	}
	lib.entries["PI"] = NewConstantRef("PI", Float(3.14159265358979323846))
	return lib
}

func (m *mapLibrary) Lookup(name string) (*FunctionRef, bool) {
	ref, ok := m.entries[name]
	return ref, ok
}

// NewChainLibrary composes multiple FunctionLibrary catalogs, consulted
// in order — the function-resolution analogue of NewChainRepository,
// letting a host layer its own domain functions over (or under) the
// built-ins from NewStdlib.
func NewChainLibrary(links ...FunctionLibrary) FunctionLibrary {
	return &chainLibrary{links: links}
}

type chainLibrary struct {
	links []FunctionLibrary
}

func (c *chainLibrary) Lookup(name string) (*FunctionRef, bool) {
	for _, link := range c.links {
		if link == nil {
			continue
		}
		if ref, ok := link.Lookup(name); ok {
			return ref, true
		}
	}
	return nil, false
}

func popTwoNumeric(s *Stack, op string) (Value, Value, error) {
	vs, err := s.PopN(2)
	if err != nil {
		return nil, nil, err
	}
	a, b := vs[0], vs[1]
	if !isNumeric(a) || !isNumeric(b) {
		return nil, nil, typeErrorf("%s requires two numeric operands, got %s and %s", op, typeName(a), typeName(b))
	}
	return a, b, nil
}

func bothInt(a, b Value) (int64, int64, bool) {
	ai, aok := a.(Int)
	bi, bok := b.(Int)
	return int64(ai), int64(bi), aok && bok
}

func opAdd(_ context.Context, s *Stack) error {
	a, b, err := popTwoNumeric(s, "+")
	if err != nil {
		return err
	}
	if ai, bi, ok := bothInt(a, b); ok {
		return s.Push(Int(ai + bi))
	}
	return s.Push(Float(asFloat(a) + asFloat(b)))
}

func opSub(_ context.Context, s *Stack) error {
	a, b, err := popTwoNumeric(s, "-")
	if err != nil {
		return err
	}
	if ai, bi, ok := bothInt(a, b); ok {
		return s.Push(Int(ai - bi))
	}
	return s.Push(Float(asFloat(a) - asFloat(b)))
}

func opMul(_ context.Context, s *Stack) error {
	a, b, err := popTwoNumeric(s, "*")
	if err != nil {
		return err
	}
	if ai, bi, ok := bothInt(a, b); ok {
		return s.Push(Int(ai * bi))
	}
	return s.Push(Float(asFloat(a) * asFloat(b)))
}

func opDiv(_ context.Context, s *Stack) error {
	a, b, err := popTwoNumeric(s, "/")
	if err != nil {
		return err
	}
	if asFloat(b) == 0 {
		return typeErrorf("/ by zero")
	}
	if ai, bi, ok := bothInt(a, b); ok && ai%bi == 0 {
		return s.Push(Int(ai / bi))
	}
	return s.Push(Float(asFloat(a) / asFloat(b)))
}

func opCompare(op compareOp) func(context.Context, *Stack) error {
	return func(_ context.Context, s *Stack) error {
		vs, err := s.PopN(2)
		if err != nil {
			return err
		}
		result, err := Compare(op, vs[0], vs[1])
		if err != nil {
			return err
		}
		return s.Push(Bool(result))
	}
}

func opDepth(_ context.Context, s *Stack) error { return s.Push(Int(s.Depth())) }
func opClear(_ context.Context, s *Stack) error { s.Clear(); return nil }
func opDrop(_ context.Context, s *Stack) error  { return s.Drop() }
func opDup(_ context.Context, s *Stack) error   { return s.Dup() }
func opSwap(_ context.Context, s *Stack) error  { return s.Swap() }
func opRot(_ context.Context, s *Stack) error   { return s.Rot() }

func opStore(_ context.Context, s *Stack) error {
	vs, err := s.PopN(2)
	if err != nil {
		return err
	}
	name, ok := vs[1].(Str)
	if !ok {
		return typeErrorf("STORE requires a string name on top, got %s", typeName(vs[1]))
	}
	return s.Store(string(name), vs[0])
}

func opLoad(_ context.Context, s *Stack) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	name, ok := v.(Str)
	if !ok {
		return typeErrorf("LOAD requires a string name, got %s", typeName(v))
	}
	val, ok := s.Load(string(name))
	if !ok {
		return resolutionErrorf("unknown symbol '%s'", string(name))
	}
	return s.Push(val)
}

func opForget(_ context.Context, s *Stack) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	if IsNull(v) {
		s.Forget("")
		return nil
	}
	name, ok := v.(Str)
	if !ok {
		return typeErrorf("FORGET requires a string name or null, got %s", typeName(v))
	}
	s.Forget(string(name))
	return nil
}

func opEval(ctx context.Context, s *Stack) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	m, ok := v.(*Macro)
	if !ok {
		return typeErrorf("EVAL requires a macro on top, got %s", typeName(v))
	}
	return s.Exec(ctx, m)
}

func opSave(_ context.Context, s *Stack) error    { return s.Save() }
func opRestore(_ context.Context, s *Stack) error { return s.Restore() }
func opReturn(_ context.Context, s *Stack) error  { return ErrReturn() }
func opStop(_ context.Context, s *Stack) error    { s.Signal(SignalStop); return nil }
func opKill(_ context.Context, s *Stack) error    { s.Signal(SignalKill); return nil }

func opNot(_ context.Context, s *Stack) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	b, ok := v.(Bool)
	if !ok {
		return typeErrorf("NOT requires a boolean, got %s", typeName(v))
	}
	return s.Push(Bool(!bool(b)))
}

func opAnd(_ context.Context, s *Stack) error {
	vs, err := s.PopN(2)
	if err != nil {
		return err
	}
	a, aok := vs[0].(Bool)
	b, bok := vs[1].(Bool)
	if !aok || !bok {
		return typeErrorf("AND requires two booleans, got %s and %s", typeName(vs[0]), typeName(vs[1]))
	}
	return s.Push(Bool(bool(a) && bool(b)))
}

func opOr(_ context.Context, s *Stack) error {
	vs, err := s.PopN(2)
	if err != nil {
		return err
	}
	a, aok := vs[0].(Bool)
	b, bok := vs[1].(Bool)
	if !aok || !bok {
		return typeErrorf("OR requires two booleans, got %s and %s", typeName(vs[0]), typeName(vs[1]))
	}
	return s.Push(Bool(bool(a) || bool(b)))
}

func opToString(_ context.Context, s *Stack) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.Push(Str(fmt.Sprint(v)))
}
