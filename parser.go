package warpscript

import (
	"context"
	"strconv"
	"strings"
)

// Default secure-script block delimiters. §6 calls these "platform
// constants exposed via the library"; a host can override them by
// setting a stack's secure-open/close pair before parsing, the way the
// original ships them as installation-wide constants rather than
// language keywords.
const (
	DefaultSecureOpen    = "<%SECURE%>"
	DefaultSecureClose   = "<%/SECURE%>"
	macroOpenToken       = "<%"
	macroCloseToken      = "%>"
	multilineOpenToken   = "<'"
	multilineCloseToken  = "'>"
)

// parseMode is one of the parser's three sticky modes, per §4.2.
type parseMode int

const (
	modeNormal parseMode = iota
	modeBlockComment
	modeMultiline
	modeSecure
)

// parserState is the parser's sticky state: which mode it is in, the
// macros currently under construction, and the accumulated text of a
// multiline string or secure block in progress. It lives on the Stack
// (not the per-call parser cursor below) so that it persists across
// separate Parse calls, per §4.2's "maintaining sticky modes" language. A
// Parse call that ends inside a block comment, multiline string or parsed
// macro still reports the unbalanced-block error, but the open state is
// kept, so the next Parse call on the same stack resumes inside it.
type parserState struct {
	mode parseMode

	// macroStack holds the macros currently under construction, innermost
	// last. Depth 0 means "not inside a macro": tokens take immediate
	// effect instead of being appended.
	macroStack []*Macro

	// forcedDepth counts macros opened via the API-initiated MacroOpen,
	// which must be balanced by an equal number of MacroClose calls, per
	// §4.2's "macroOpen/macroClose provide an API-initiated forced-macro
	// mode that must be balanced."
	forcedDepth int

	multilineBuf strings.Builder
	secureBuf    strings.Builder

	secureOpen  string
	secureClose string
}

func newParserState() *parserState {
	return &parserState{secureOpen: DefaultSecureOpen, secureClose: DefaultSecureClose}
}

// SetSecureDelimiters overrides the secure-script block delimiters, per
// §6's "the actual token strings are platform constants exposed via the
// library".
func (s *Stack) SetSecureDelimiters(open, close string) {
	s.parser.secureOpen = open
	s.parser.secureClose = close
}

// MacroOpen begins an API-initiated macro, per §4.2's forced-macro mode:
// subsequent parsed/executed statements append to this macro instead of
// taking immediate effect, until a matching MacroClose.
func (s *Stack) MacroOpen() {
	if len(s.parser.macroStack) == 0 && s.audit != nil {
		s.audit.Reset()
	}
	s.parser.macroStack = append(s.parser.macroStack, NewMacro())
	s.parser.forcedDepth++
}

// MacroClose ends the innermost API-initiated macro and returns it,
// failing if none is open.
func (s *Stack) MacroClose() (*Macro, error) {
	if s.parser.forcedDepth == 0 || len(s.parser.macroStack) == 0 {
		return nil, resolutionErrorf("macroClose: no forced macro is open")
	}
	m := s.parser.macroStack[len(s.parser.macroStack)-1]
	s.parser.macroStack = s.parser.macroStack[:len(s.parser.macroStack)-1]
	s.parser.forcedDepth--
	return m, nil
}

// parser is a per-Parse-call cursor over one line at a time; the sticky
// mode/macro-nesting state it reads and writes lives on ps (the stack's
// persistent parserState), per §4.2.
type parser struct {
	stack *Stack
	ps    *parserState
	ctx   context.Context

	line    string
	lineNum int
	col     int
}

// Parse tokenizes and, exactly as it scans, runs src against stack: per
// §2's data flow, each token either takes an *immediate* stack/exec
// effect (when no macro is currently being defined) or is *appended* to
// the innermost macro under construction; on a top-level macro close the
// finished Macro is pushed as a value, just like any other immediate
// effect. There is no separate compiled form for the top-level script —
// ExecMulti is Parse alone.
//
// If src leaves a block comment or multiline string unbalanced, Parse
// fails with an unbalanced-block parse error; a macro left open is also
// an error unless it was opened through MacroOpen, whose forced macros
// may stay open across Parse calls until the matching MacroClose. In
// every case the sticky state is kept, so a following Parse call resumes
// inside the open construct.
//
// Parse takes a context so that immediate-mode function applications can
// honor cancellation the same way Exec does; pass context.Background()
// if the caller has none to propagate.
func Parse(ctx context.Context, stack *Stack, src string) error {
	p := &parser{stack: stack, ps: stack.parser, ctx: ctx}
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		p.line = line
		p.lineNum = i + 1
		if err := p.parseLine(); err != nil {
			return err
		}
		if err := stack.step(); err != nil {
			return err
		}
	}
	if p.ps.mode == modeBlockComment {
		return p.frame(parseErrorf("unbalanced block comment: missing */"), len(p.line), len(p.line))
	}
	if p.ps.mode == modeMultiline {
		return p.frame(parseErrorf("unbalanced multiline string: missing '>"), len(p.line), len(p.line))
	}
	if len(p.ps.macroStack) > p.ps.forcedDepth {
		return p.frame(parseErrorf("unbalanced macro: missing %%>"), len(p.line), len(p.line))
	}
	return nil
}

func (p *parser) frame(err error, start, end int) error {
	return frameError(err, p.line, start, end, p.stack.Section())
}

// currentMacro returns the innermost open macro, or nil when not inside
// any macro (immediate mode).
func (p *parser) currentMacro() *Macro {
	if len(p.ps.macroStack) == 0 {
		return nil
	}
	return p.ps.macroStack[len(p.ps.macroStack)-1]
}

// parseLine walks one line of source, honoring the sticky modes.
func (p *parser) parseLine() error {
	switch p.ps.mode {
	case modeBlockComment:
		if idx := strings.Index(p.line, "*/"); idx >= 0 {
			p.ps.mode = modeNormal
			p.col = idx + 2
			return p.scan()
		}
		return nil
	case modeMultiline:
		if strings.TrimSpace(p.line) == multilineCloseToken {
			p.ps.mode = modeNormal
			str := strings.TrimSuffix(p.ps.multilineBuf.String(), "\n")
			p.ps.multilineBuf.Reset()
			return p.emitLiteral(Str(str))
		}
		p.ps.multilineBuf.WriteString(p.line)
		p.ps.multilineBuf.WriteByte('\n')
		return nil
	case modeSecure:
		trimmed := strings.TrimSpace(p.line)
		if trimmed == p.ps.secureClose || strings.HasSuffix(trimmed, p.ps.secureClose) {
			before := strings.TrimSuffix(trimmed, p.ps.secureClose)
			if before != "" {
				p.ps.secureBuf.WriteString(before)
			}
			p.ps.mode = modeNormal
			text := p.ps.secureBuf.String()
			p.ps.secureBuf.Reset()
			return p.closeSecure(text)
		}
		p.ps.secureBuf.WriteString(p.line)
		p.ps.secureBuf.WriteByte(' ')
		return nil
	default:
		p.col = 0
		return p.scan()
	}
}

// closeSecure pushes the collected secure-block text and invokes the
// secure-wrap function, per §4.2's "the terminator closes the block,
// pushes the resulting string, and invokes the secure-wrap function." The
// secure-wrap function is an ordinary library function named "SECURE";
// hosts without one simply leave the encoded string on the stack.
func (p *parser) closeSecure(text string) error {
	if err := p.emitLiteral(Str(percentEncode(text))); err != nil {
		return err
	}
	ref, err := p.stack.FindFunction("SECURE")
	if err != nil {
		// No secure-wrap function registered: leave the encoded string on
		// the stack as-is.
		return nil
	}
	if m := p.currentMacro(); m != nil {
		m.Append(MacroEntry{Kind: EntryFunctionRef, FunctionRef: ref, Source: "SECURE"})
		return nil
	}
	return p.applyImmediateFunction(ref, "SECURE", p.col, p.col)
}

// scan walks p.line from p.col to the end, classifying and dispatching
// tokens, per §4.2's token classification and per-context behavior.
func (p *parser) scan() error {
	for p.col < len(p.line) {
		c := p.line[p.col]
		if isSpace(c) {
			p.col++
			continue
		}
		if c == '#' || (c == '/' && p.peek(1) == '/') {
			return nil // line comment: rest of line ignored
		}
		if c == '/' && p.peek(1) == '*' {
			p.col += 2
			if idx := strings.Index(p.line[p.col:], "*/"); idx >= 0 {
				p.col += idx + 2
				continue
			}
			p.ps.mode = modeBlockComment
			return nil
		}
		// p.col now marks the start of an actual token (secure/multiline
		// open, macro open/close, string, or bare token): charge one op per
		// §5's parser-token granularity, not per character scanned.
		if err := p.stack.step(); err != nil {
			return err
		}
		if strings.HasPrefix(p.line[p.col:], p.ps.secureOpen) {
			p.col += len(p.ps.secureOpen)
			p.ps.mode = modeSecure
			return nil
		}
		if strings.HasPrefix(p.line[p.col:], multilineOpenToken) && strings.TrimSpace(p.line) == multilineOpenToken {
			p.ps.mode = modeMultiline
			return nil
		}
		if strings.HasPrefix(p.line[p.col:], macroOpenToken) {
			p.col += len(macroOpenToken)
			if len(p.ps.macroStack) == p.ps.forcedDepth && p.stack.audit != nil {
				p.stack.audit.Reset()
			}
			p.ps.macroStack = append(p.ps.macroStack, NewMacro())
			continue
		}
		if strings.HasPrefix(p.line[p.col:], macroCloseToken) {
			start := p.col
			p.col += len(macroCloseToken)
			if len(p.ps.macroStack) == 0 {
				return p.frame(parseErrorf("unbalanced macro: unexpected %%>"), start, p.col)
			}
			m := p.ps.macroStack[len(p.ps.macroStack)-1]
			p.ps.macroStack = p.ps.macroStack[:len(p.ps.macroStack)-1]
			if err := p.emitLiteral(m); err != nil {
				return err
			}
			continue
		}
		if c == '\'' || c == '"' {
			tok, newCol, err := p.scanString(c)
			if err != nil {
				return err
			}
			p.col = newCol
			if err := p.emitLiteral(Str(percentDecode(tok))); err != nil {
				return err
			}
			continue
		}

		start := p.col
		tok := p.scanBareToken()
		if err := p.dispatch(tok, start, p.col); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) peek(offset int) byte {
	i := p.col + offset
	if i < 0 || i >= len(p.line) {
		return 0
	}
	return p.line[i]
}

func isSpace(c byte) bool {
	return c <= 0x20
}

// scanBareToken consumes a run of non-whitespace characters starting at
// p.col and returns it, advancing p.col past it.
func (p *parser) scanBareToken() string {
	start := p.col
	for p.col < len(p.line) && !isSpace(p.line[p.col]) {
		p.col++
	}
	return p.line[start:p.col]
}

// scanString consumes a single-line quoted string starting at p.line[p.col]
// (which must be the opening quote), applying §4.2's termination policy: a
// quote ends the string only when immediately followed by end-of-line or
// whitespace (after trimming). It returns the string's raw contents
// (without the delimiting quotes) and the column just past the closing
// quote.
func (p *parser) scanString(quote byte) (string, int, error) {
	var b strings.Builder
	i := p.col + 1
	for i < len(p.line) {
		c := p.line[i]
		if c == '\\' && i+1 < len(p.line) {
			b.WriteByte(c)
			b.WriteByte(p.line[i+1])
			i += 2
			continue
		}
		if c == quote {
			next := byte(' ')
			if i+1 < len(p.line) {
				next = p.line[i+1]
			}
			if i+1 >= len(p.line) || isSpace(next) {
				return b.String(), i + 1, nil
			}
			// Embedded unescaped quote: tolerated with a warning in audit
			// mode, kept verbatim otherwise, per §4.2.
			if p.stack.AuditEnabled() {
				p.stack.logger.Warn(CatParse, "embedded unescaped quote in string at line %d", p.lineNum)
			}
			b.WriteByte(c)
			i++
			continue
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, p.frame(parseErrorf("unterminated string"), p.col, len(p.line))
}

// emitLiteral appends a literal to the innermost open macro, or pushes it
// onto the stack immediately when no macro is being defined, per the
// per-context behavior of §4.2.
func (p *parser) emitLiteral(v Value) error {
	if m := p.currentMacro(); m != nil {
		m.Append(MacroEntry{Kind: EntryLiteral, Literal: v, Source: v.String()})
		return nil
	}
	return p.stack.Push(v)
}

// dispatch classifies a bare token (everything that isn't a string,
// comment, or macro delimiter) and appends/executes it per §4.2's table:
// hex/binary/decimal/float/boolean literals, $name, !$name, @name, or a
// function name.
func (p *parser) dispatch(tok string, start, end int) error {
	switch {
	case isHexLiteral(tok):
		v, err := parseHexLiteral(tok)
		if err != nil {
			return p.frame(err, start, end)
		}
		return p.emitLiteral(v)
	case isBinLiteral(tok):
		v, err := parseBinLiteral(tok)
		if err != nil {
			return p.frame(err, start, end)
		}
		return p.emitLiteral(v)
	case isIntLiteral(tok):
		v, err := parseIntLiteral(tok)
		if err != nil {
			return p.frame(err, start, end)
		}
		return p.emitLiteral(v)
	case isFloatLiteral(tok):
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return p.frame(typeErrorf("invalid floating literal '%s'", tok), start, end)
		}
		return p.emitLiteral(Float(f))
	case isBoolLiteral(tok):
		return p.emitLiteral(Bool(parseBoolLiteral(tok)))
	case strings.HasPrefix(tok, "!$") && len(tok) > 2:
		return p.dispatchImmediateVar(tok[2:], start, end)
	case strings.HasPrefix(tok, "$") && len(tok) > 1:
		return p.dispatchDeferredVar(tok[1:])
	case strings.HasPrefix(tok, "@") && len(tok) > 1:
		return p.dispatchMacroInvoke(tok[1:], start, end)
	default:
		return p.dispatchFunction(tok, start, end)
	}
}

// dispatchDeferredVar implements $name in both contexts: immediate mode
// loads and pushes now; inside a macro it appends a single deferred-load
// entry that looks the symbol up and pushes it at execution time.
func (p *parser) dispatchDeferredVar(name string) error {
	if m := p.currentMacro(); m != nil {
		m.Append(MacroEntry{Kind: EntryDeferredLoad, Name: name, Source: "$" + name})
		return nil
	}
	v, ok := p.stack.Load(name)
	if !ok {
		return resolutionErrorf("unknown symbol '%s'", name)
	}
	return p.stack.Push(v)
}

// dispatchImmediateVar implements !$name: always resolved at parse time,
// even inside a macro under construction, per §4.2 ("!$name is resolved
// at parse time and the resolved value appended").
func (p *parser) dispatchImmediateVar(name string, start, end int) error {
	v, ok := p.stack.Load(name)
	if !ok {
		return p.frame(resolutionErrorf("unknown symbol '%s' (early bind)", name), start, end)
	}
	return p.emitLiteral(v)
}

// dispatchMacroInvoke implements @name: immediate mode resolves and runs
// the macro now; inside a macro it appends a single deferred-run entry
// that resolves and runs the macro at execution time (late binding).
func (p *parser) dispatchMacroInvoke(name string, start, end int) error {
	if m := p.currentMacro(); m != nil {
		m.Append(MacroEntry{Kind: EntryDeferredRun, Name: name, Source: "@" + name})
		return nil
	}
	target, err := p.stack.FindMacro(p.ctx, name)
	if err != nil {
		return p.frame(err, start, end)
	}
	if err := p.stack.Exec(p.ctx, target); err != nil {
		return p.frame(err, start, end)
	}
	return nil
}

// dispatchFunction implements the "otherwise a function name" case: in
// immediate mode a stack-function is applied now and a plain value is
// pushed now; inside a macro under construction, the resolved reference
// is appended so it can be applied/pushed at Exec time. Unknown-function
// is a resolution error, demotable in audit mode.
func (p *parser) dispatchFunction(name string, start, end int) error {
	ref, err := p.stack.FindFunction(name)
	if err != nil {
		if m := p.currentMacro(); m != nil {
			if stmt, ok := p.stack.demote(err, name, &SourcePosition{Line: p.lineNum, Column: start, Section: p.stack.Section()}, len(p.ps.macroStack)); ok {
				m.Append(MacroEntry{Kind: EntryAudit, Audit: stmt, Source: name})
				return nil
			}
		}
		return p.frame(err, start, end)
	}
	entry := MacroEntry{Kind: EntryFunctionRef, FunctionRef: ref, Source: name}
	if m := p.currentMacro(); m != nil {
		m.Append(entry)
		return nil
	}
	return p.applyImmediateFunction(ref, name, start, end)
}

func (p *parser) applyImmediateFunction(ref *FunctionRef, name string, start, end int) error {
	if !ref.IsCallable() {
		return p.stack.Push(ref.Const)
	}
	err := ref.Fn.Apply(p.ctx, p.stack)
	if err != nil {
		return p.frame(err, start, end)
	}
	return nil
}
