// Package warpscript implements the execution engine of a stack-oriented,
// postfix scripting language used to program a time-series analytics
// platform: a streaming character-level parser, a polymorphic value stack,
// nested macro compilation with deferred and early binding, and enforcement
// of operation, recursion, depth and symbol budgets under cooperative
// cancellation.
//
// The engine deliberately knows nothing about the built-in function
// catalog, the time-series store, or macro persistence: those are supplied
// by the host application through the FunctionLibrary, MacroRepository and
// TelemetrySink interfaces in library.go.
//
// Basic usage:
//
//	stack := warpscript.NewStack(warpscript.DefaultConfig(), lib, nil)
//	if err := stack.ExecMulti(context.Background(), "1 2 +"); err != nil {
//		log.Fatal(err)
//	}
//	top, _ := stack.Peek()
package warpscript
