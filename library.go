package warpscript

import "context"

// StackFunction is a built-in or host-registered operation that acts
// directly on a Stack, per §4.2's function dispatch rule: "if it is a
// stack-function it is applied immediately". Apply is expected to pop its
// own arguments and push its own results; the engine never inspects an
// arity beyond what Apply itself enforces via Stack.Pop/Stack.PopN.
type StackFunction interface {
	Name() string
	Apply(ctx context.Context, stack *Stack) error
}

// FunctionRef is the polymorphic reference a name resolves to, per §9's
// design note: "Polymorphic function references should be modeled as a sum
// type: {StackFn(fn), Value(v)}." Exactly one of Fn or Const is set. When
// Fn is set the reference is applied immediately on resolution; when Const
// is set the reference is pushed as a plain value instead (used for
// library-provided constants such as pi or a build identifier that share
// the function namespace).
type FunctionRef struct {
	name  string
	Fn    StackFunction
	Const Value
}

func (*FunctionRef) isValue() {}

func (f *FunctionRef) String() string {
	return "F<" + f.name + ">"
}

// IsCallable reports whether resolving this reference applies it
// immediately (true) or pushes it as a value (false).
func (f *FunctionRef) IsCallable() bool {
	return f.Fn != nil
}

// NewStackFunctionRef wraps a StackFunction as an immediately-callable
// reference.
func NewStackFunctionRef(fn StackFunction) *FunctionRef {
	return &FunctionRef{name: fn.Name(), Fn: fn}
}

// NewConstantRef wraps a plain Value as a reference that is pushed rather
// than called, sharing the function-name resolution chain.
func NewConstantRef(name string, v Value) *FunctionRef {
	return &FunctionRef{name: name, Const: v}
}

// FunctionLibrary is the external function catalog a host application
// supplies to a Stack. Everything a script can call by name comes from the
// library passed to NewStack, per this package's doc comment; NewStdlib
// provides a small catalog (arithmetic, comparisons, stack and control
// operations), and nothing for time-series access or I/O.
type FunctionLibrary interface {
	// Lookup resolves name to a FunctionRef, or reports ok=false if the
	// library has no such name (the resolver then reports "unknown
	// function").
	Lookup(name string) (ref *FunctionRef, ok bool)
}

// MacroRepository resolves named macros that are not present in a stack's
// own symbol table, per §4.5's macro resolution chain: local symbol table
// → in-process macro repository → library → fleet repository → extension
// resolver. A host composes as many of these links as it needs; the
// engine only ever consults the first one it is given.
type MacroRepository interface {
	// ResolveMacro looks up a named, previously published macro. ok=false
	// means this repository has no such macro and the chain should try
	// its next link.
	ResolveMacro(ctx context.Context, name string) (m *Macro, ok bool)
}

// TelemetrySink receives execution metrics a host may want to export
// (per-call counters, timings), the way the original implementation
// reports through a metrics backend on every function invocation. A nil
// sink disables telemetry entirely.
type TelemetrySink interface {
	RecordCall(functionName string, elapsedNanos int64, err error)
	RecordOps(delta int64)
}

// chainRepository tries each MacroRepository in order, implementing the
// "next link in the chain" behavior described on MacroRepository.
type chainRepository struct {
	links []MacroRepository
}

// NewChainRepository composes multiple MacroRepository links into one,
// consulted in the given order.
func NewChainRepository(links ...MacroRepository) MacroRepository {
	return &chainRepository{links: links}
}

func (c *chainRepository) ResolveMacro(ctx context.Context, name string) (*Macro, bool) {
	for _, link := range c.links {
		if link == nil {
			continue
		}
		if m, ok := link.ResolveMacro(ctx, name); ok {
			return m, true
		}
	}
	return nil, false
}
