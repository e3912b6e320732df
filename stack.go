package warpscript

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sharedCounters holds the operation and recursion counters that a stack
// and every substack derived from it share, per §4.8: a substack "shares
// the parent's operation counter, recursion counter, and most attributes".
type sharedCounters struct {
	mu sync.Mutex

	ops    int64
	maxOps int64

	reclevel   int64
	maxRecurse int64
}

func newSharedCounters(cfg *Config) *sharedCounters {
	return &sharedCounters{maxOps: cfg.MaxOps, maxRecurse: cfg.MaxRecursion}
}

func (c *sharedCounters) incOps(n int64) error {
	c.mu.Lock()
	c.ops += n
	over := c.ops > c.maxOps
	ops := c.ops
	c.mu.Unlock()
	if over {
		return budgetErrorf("operation count exceeded (%d > %d)", ops, c.maxOps)
	}
	return nil
}

func (c *sharedCounters) currentOps() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ops
}

func (c *sharedCounters) recurseIn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reclevel++
	if c.reclevel > c.maxRecurse {
		// Never entered this frame: undo the increment before reporting the
		// error, so a rejected recursion leaves reclevel exactly as it found
		// it (§3's guaranteed-decrement-on-every-exit-path invariant).
		c.reclevel--
		return budgetErrorf("recursion level exceeded (%d > %d)", c.reclevel+1, c.maxRecurse)
	}
	return nil
}

func (c *sharedCounters) recurseOut() {
	c.mu.Lock()
	c.reclevel--
	c.mu.Unlock()
}

func (c *sharedCounters) currentRecursion() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reclevel
}

// Stack is the engine's stack machine: a depth-limited value buffer with
// hide/show windowing (§3, §4.4), a symbol table, a register file, an
// attribute map, a redefinition table, and the resource counters and
// signal state described in §5.
//
// A Stack is single-threaded by design (§5's scheduling model): all
// mutating methods assume a single driver goroutine. The only state safe
// to touch from multiple goroutines is the counters shared with
// substacks, through the synchronized methods on sharedCounters, and the
// pending signal, through Signal.
type Stack struct {
	ID   uuid.UUID
	Name string

	cfg *Config

	buf      []Value
	size     int
	offset   int
	maxdepth int

	symbols     *symbolTable
	registers   []Value
	attributes  *attributeMap
	redefined   *redefineTable

	counters *sharedCounters

	section       string
	macroName     string
	inSecureMacro bool

	signalMu sync.Mutex
	pending  Signal

	audit *auditTracer

	parser *parserState

	lastErrorPosition *SourcePosition

	library   FunctionLibrary
	macroRepo MacroRepository
	telemetry TelemetrySink
	logger    *Logger

	createdAt time.Time

	parent *Stack
}

// NewStack creates a fresh top-level stack with the given configuration
// and external collaborators. lib may be nil (no functions resolve
// externally); repo may be nil (macro resolution then only consults the
// symbol table). Telemetry stays off until SetTelemetry is called.
func NewStack(cfg *Config, lib FunctionLibrary, repo MacroRepository) *Stack {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfgCopy := *cfg
	s := &Stack{
		ID:         uuid.New(),
		cfg:        &cfgCopy,
		buf:        make([]Value, 0, 16),
		maxdepth:   cfg.MaxDepth,
		symbols:    newSymbolTable(cfg.MaxSymbols),
		registers:  make([]Value, cfg.Registers),
		attributes: newAttributeMap(),
		redefined:  newRedefineTable(),
		counters:   newSharedCounters(cfg),
		section:    TopLevelSection,
		library:    lib,
		macroRepo:  repo,
		logger:     NewLogger(cfg.Debug),
		createdAt:  time.Now(),
		parser:     newParserState(),
	}
	for i := range s.registers {
		s.registers[i] = Nil
	}
	return s
}

// SetTelemetry attaches a telemetry sink, replacing any previous one.
func (s *Stack) SetTelemetry(t TelemetrySink) { s.telemetry = t }

// Config returns the stack's configuration snapshot.
func (s *Stack) Config() *Config { return s.cfg }

func (s *Stack) recordTelemetry(fn string, elapsed time.Duration, err error) {
	if s.telemetry == nil {
		return
	}
	s.telemetry.RecordCall(fn, elapsed.Nanoseconds(), err)
}

// --- Depth accounting -------------------------------------------------

// Depth returns the number of elements visible to stack operations, i.e.
// size, per §3.
func (s *Stack) Depth() int {
	return s.size
}

// window returns the effective visible window [offset, offset+size).
func (s *Stack) window() []Value {
	return s.buf[s.offset : s.offset+s.size]
}

// ensureCapacity grows buf geometrically so that offset+size+n elements
// fit, failing if that would exceed maxdepth, per §4.4's "every growth
// path checks offset + size + n ≤ maxdepth".
func (s *Stack) ensureCapacity(n int) error {
	needed := s.offset + s.size + n
	if needed > s.maxdepth {
		return budgetErrorf("stack depth exceeded (%d > %d)", needed, s.maxdepth)
	}
	if needed <= cap(s.buf) {
		return nil
	}
	newCap := cap(s.buf)
	if newCap == 0 {
		newCap = 16
	}
	for newCap < needed {
		newCap *= 2
	}
	if newCap > s.maxdepth {
		newCap = s.maxdepth
	}
	grown := make([]Value, len(s.buf), newCap)
	copy(grown, s.buf)
	s.buf = grown
	return nil
}

// grow extends buf's length by n zero-valued slots after ensuring
// capacity, so index-based writes below can proceed.
func (s *Stack) grow(n int) error {
	if err := s.ensureCapacity(n); err != nil {
		return err
	}
	for len(s.buf) < s.offset+s.size+n {
		s.buf = append(s.buf, Nil)
	}
	return nil
}

// --- Basic operations (§4.4) -------------------------------------------

// Push places v on top of the visible window.
func (s *Stack) Push(v Value) error {
	if err := s.grow(1); err != nil {
		return err
	}
	s.buf[s.offset+s.size] = v
	s.size++
	return nil
}

// PushN pushes multiple values in the given order (vs[0] ends up deepest).
func (s *Stack) PushN(vs ...Value) error {
	for _, v := range vs {
		if err := s.Push(v); err != nil {
			return err
		}
	}
	return nil
}

// Pop removes and returns the top visible value.
func (s *Stack) Pop() (Value, error) {
	if s.size == 0 {
		return nil, resolutionErrorf("stack underflow: pop on empty stack")
	}
	s.size--
	v := s.buf[s.offset+s.size]
	s.buf[s.offset+s.size] = nil
	return v, nil
}

// PopN removes and returns the top n visible values, deepest-first (so
// PopN(2) after pushing a then b returns [a, b]).
func (s *Stack) PopN(n int) ([]Value, error) {
	if n < 0 || n > s.size {
		return nil, resolutionErrorf("stack underflow: popn(%d) with depth %d", n, s.size)
	}
	out := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := s.Pop()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Peek returns the top visible value without removing it.
func (s *Stack) Peek() (Value, error) {
	if s.size == 0 {
		return nil, resolutionErrorf("stack underflow: peek on empty stack")
	}
	return s.buf[s.offset+s.size-1], nil
}

// PeekN / Get returns the k-th value from the top (0 = top) without
// removing it, per §4.4's peekn/get(k).
func (s *Stack) PeekN(k int) (Value, error) {
	if k < 0 || k >= s.size {
		return nil, resolutionErrorf("stack underflow: get(%d) with depth %d", k, s.size)
	}
	return s.buf[s.offset+s.size-1-k], nil
}

// Dup duplicates the top value.
func (s *Stack) Dup() error {
	v, err := s.Peek()
	if err != nil {
		return err
	}
	return s.Push(v)
}

// DupN duplicates the top n values, preserving their order.
func (s *Stack) DupN(n int) error {
	if n < 0 || n > s.size {
		return resolutionErrorf("stack underflow: dupn(%d) with depth %d", n, s.size)
	}
	if n == 0 {
		return nil
	}
	src := make([]Value, n)
	copy(src, s.buf[s.offset+s.size-n:s.offset+s.size])
	return s.PushN(src...)
}

// Drop removes the top value without returning it.
func (s *Stack) Drop() error {
	_, err := s.Pop()
	return err
}

// DropN removes the top n values, n read from the top per §4.4.
func (s *Stack) DropN(n int) error {
	_, err := s.PopN(n)
	return err
}

// Clear removes every visible element.
func (s *Stack) Clear() {
	for i := s.offset; i < s.offset+s.size; i++ {
		s.buf[i] = nil
	}
	s.size = 0
}

// Reset truncates the visible window to at most d elements, discarding
// the most recently pushed elements down to depth d and keeping the
// older, deeper ones untouched, per §4.4's reset(d) — the same "cut back
// to a remembered depth" role MARK/RESET plays in the original.
func (s *Stack) Reset(d int) error {
	if d < 0 {
		return resolutionErrorf("reset: negative depth %d", d)
	}
	if d >= s.size {
		return nil
	}
	drop := s.size - d
	for i := 0; i < drop; i++ {
		s.buf[s.offset+s.size-1-i] = nil
	}
	s.size = d
	return nil
}

// Swap exchanges the top two elements.
func (s *Stack) Swap() error {
	if s.size < 2 {
		return resolutionErrorf("stack underflow: swap needs depth 2, has %d", s.size)
	}
	top := s.offset + s.size - 1
	s.buf[top], s.buf[top-1] = s.buf[top-1], s.buf[top]
	return nil
}

// Rot cyclically rotates the top three elements: (a b c -> b c a).
func (s *Stack) Rot() error {
	if s.size < 3 {
		return resolutionErrorf("stack underflow: rot needs depth 3, has %d", s.size)
	}
	top := s.offset + s.size - 1
	a, b, c := s.buf[top-2], s.buf[top-1], s.buf[top]
	s.buf[top-2], s.buf[top-1], s.buf[top] = b, c, a
	return nil
}

// Roll cyclically rotates the top n elements upward: the deepest of the
// n moves to the top, per §4.4's roll(n).
func (s *Stack) Roll(n int) error {
	if n < 0 || n > s.size {
		return resolutionErrorf("stack underflow: roll(%d) with depth %d", n, s.size)
	}
	if n < 2 {
		return nil
	}
	top := s.offset + s.size - 1
	window := s.buf[top-n+1 : top+1]
	first := window[0]
	copy(window[:len(window)-1], window[1:])
	window[len(window)-1] = first
	return nil
}

// Rolld cyclically rotates the top n elements downward: the top element
// moves to position n from the top, per §4.4's rolld(n).
func (s *Stack) Rolld(n int) error {
	if n < 0 || n > s.size {
		return resolutionErrorf("stack underflow: rolld(%d) with depth %d", n, s.size)
	}
	if n < 2 {
		return nil
	}
	top := s.offset + s.size - 1
	window := s.buf[top-n+1 : top+1]
	last := window[len(window)-1]
	copy(window[1:], window[:len(window)-1])
	window[0] = last
	return nil
}

// Pick copies the n-th element from the top to the top, per §4.4's
// pick(n) (0 = duplicate the current top, same as Dup).
func (s *Stack) Pick(n int) error {
	v, err := s.PeekN(n)
	if err != nil {
		return err
	}
	return s.Push(v)
}

// --- Hide / Show (§4.4) -------------------------------------------------

// Hide moves every currently visible element into the hidden prefix.
func (s *Stack) Hide() {
	s.offset += s.size
	s.size = 0
}

// HideN hides count elements per §4.4's signed convention: a positive
// count hides exactly that many (capped at the visible size); a negative
// count means "keep -count visible, hide the rest".
func (s *Stack) HideN(count int) {
	var n int
	if count >= 0 {
		n = count
		if n > s.size {
			n = s.size
		}
	} else {
		keep := -count
		if keep >= s.size {
			n = 0
		} else {
			n = s.size - keep
		}
	}
	s.offset += n
	s.size -= n
}

// Show reveals every hidden element back into the visible window.
func (s *Stack) Show() {
	s.size += s.offset
	s.offset = 0
}

// ShowN reveals count elements per §4.4's signed convention: a positive
// count reveals exactly that many (capped at what is hidden); a negative
// count means "leave -count visible in total, doing nothing if that has
// already been reached".
func (s *Stack) ShowN(count int) {
	var n int
	if count >= 0 {
		n = count
		if n > s.offset {
			n = s.offset
		}
	} else {
		target := -count
		if s.size >= target {
			n = 0
		} else {
			n = target - s.size
			if n > s.offset {
				n = s.offset
			}
		}
	}
	s.offset -= n
	s.size += n
}

// --- Section / secure-mode bookkeeping ----------------------------------

// Section returns the current diagnostic section label.
func (s *Stack) Section() string { return s.section }

// SetSection sets the diagnostic section label used in error messages.
func (s *Stack) SetSection(name string) { s.section = name }

// MacroName returns the name of the macro currently executing, if any.
func (s *Stack) MacroName() string { return s.macroName }

// InSecureMacro reports whether the stack is currently inside a secure
// frame, per §3's monotonic "sticky" rule.
func (s *Stack) InSecureMacro() bool { return s.inSecureMacro }

// CurrentOps returns the shared operation counter's current value.
func (s *Stack) CurrentOps() int64 { return s.counters.currentOps() }

// CurrentRecursion returns the shared recursion counter's current value.
func (s *Stack) CurrentRecursion() int64 { return s.counters.currentRecursion() }

// ExecMulti parses and runs src top-to-bottom against this stack, per
// §2's data flow: parsing itself drives every immediate-mode effect.
func (s *Stack) ExecMulti(ctx context.Context, src string) error {
	return Parse(ctx, s, src)
}
