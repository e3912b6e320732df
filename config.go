package warpscript

// Config holds the tunable limits and behavioral flags of a Stack.
//
// It mirrors the way the teacher interpreter threads a single Config
// struct through New(): every knob a Stack needs at construction time
// lives here rather than as scattered constructor arguments.
type Config struct {
	// MaxDepth is the maximum number of elements (visible + hidden) a
	// Stack may hold at once.
	MaxDepth int

	// MaxOps is the maximum number of operations (parser tokens and
	// executed statements) a single top-level script execution may spend.
	MaxOps int64

	// MaxRecursion is the maximum call-graph depth reachable through
	// nested exec/macro invocation.
	MaxRecursion int64

	// MaxSymbols is the maximum number of entries the symbol table may
	// hold.
	MaxSymbols int

	// Registers is the fixed size of the register file.
	Registers int

	// AllowLooseBlockComments is carried in the configuration but the
	// parser never reads it: block comments always need balanced /* */
	// pairs, and a "/*" inside an open comment is ignored like any other
	// comment text.
	AllowLooseBlockComments bool

	// AllowRedefinedFunctions controls whether the redefinition table is
	// consulted ahead of the external function library. When false,
	// FindFunction skips straight to the library even if a name has been
	// locally redefined.
	AllowRedefinedFunctions bool

	// UnshadowOnUndefine controls the behavior of Redefine(name, nil):
	// when true the redefinition is simply removed (the library's
	// original function becomes visible again); when false a stub
	// function that fails with "<name> is undefined" is installed instead,
	// preserving the shadowing.
	UnshadowOnUndefine bool

	// Debug enables verbose logging on the engine's logger.
	Debug bool
}

// Default resource limits, named after the budgets described in the
// engine's resource governance model. These are generous defaults meant
// for a library embedder to tighten, not hard limits of the engine itself.
const (
	DefaultMaxDepth     = 1000
	DefaultMaxOps       = 1000000
	DefaultMaxRecursion = 100
	DefaultMaxSymbols   = 1000
	DefaultRegisters    = 32
)

// DefaultConfig returns a Config populated with the engine's default
// budgets, matching the teacher's DefaultConfig() shape: a single call
// that a caller can take verbatim or start from and override selectively.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:                DefaultMaxDepth,
		MaxOps:                  DefaultMaxOps,
		MaxRecursion:            DefaultMaxRecursion,
		MaxSymbols:              DefaultMaxSymbols,
		Registers:               DefaultRegisters,
		AllowLooseBlockComments: false,
		AllowRedefinedFunctions: true,
		UnshadowOnUndefine:      false,
		Debug:                   false,
	}
}

// MaxLimits returns a Config with every budget raised to a value that is
// for all practical purposes unbounded. Ported from the original
// implementation's maxLimits() escape hatch, used by trusted internal
// callers (e.g. administrative macros) that must not be budget-limited.
func MaxLimits() *Config {
	return &Config{
		MaxDepth:                1<<31 - 1,
		MaxOps:                  1<<62 - 1,
		MaxRecursion:            1<<31 - 1,
		MaxSymbols:              1<<31 - 1,
		Registers:               DefaultRegisters,
		AllowLooseBlockComments: false,
		AllowRedefinedFunctions: true,
		UnshadowOnUndefine:      false,
		Debug:                   false,
	}
}
