// Command wsrepl is a line-mode REPL driving the engine's stack against
// its built-in stdlib, useful for exercising scripts interactively
// without a host application's own function catalog.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	warpscript "github.com/alexandrebrg/warp10-platform"
)

func main() {
	stack := warpscript.NewStack(warpscript.DefaultConfig(), warpscript.NewStdlib(), nil)
	if err := stack.SetAttribute(warpscript.AttrName, "wsrepl"); err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not name stack:", err)
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		runInteractive(stack)
		return
	}
	runPiped(stack)
}

func runPiped(stack *warpscript.Stack) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		execLine(stack, scanner.Text())
	}
}

func runInteractive(stack *warpscript.Stack) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		runPiped(stack)
		return
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(os.Stdin, "ws> ")
	for {
		line, err := t.ReadLine()
		if err != nil {
			return
		}
		switch strings.TrimSpace(line) {
		case ":quit", ":q":
			return
		case ":ps":
			printRegistry(t)
			continue
		}
		if err := execLine(stack, line); err != nil {
			fmt.Fprintln(t, "error:", err)
		}
		fmt.Fprintf(t, "depth=%d\n", stack.Depth())
	}
}

func execLine(stack *warpscript.Stack, line string) error {
	return stack.ExecMulti(context.Background(), line)
}

func printRegistry(w *term.Terminal) {
	for _, info := range warpscript.RegistrySnapshot() {
		fmt.Fprintf(w, "%s\t%s\tdepth=%d\tops=%d\n", info.ID, info.Name, info.Depth, info.Ops)
	}
}
