// Package state holds the per-execution mutable state the engine steps:
// the call stack, locals, the optional linear memory, accumulated path
// constraints, and the bookkeeping (hotness, status, advance flag) the
// scheduler needs to fork and resume paths (spec §3).
package state

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/wasymex/wasymex-go/internal/wasymex/memory"
	"github.com/wasymex/wasymex-go/internal/wasymex/module"
	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
	"github.com/wasymex/wasymex-go/internal/wasymex/value"
)

// TrapReason aliases value.TrapReason so a trapped Execution's reason can be
// named from this package; spec §3 defines it as part of Status, not Value.
type TrapReason = value.TrapReason

// Status is the closed set of states an Execution can be in once stepping
// stops producing further steps from it.
type Status int

const (
	StatusNone Status = iota
	StatusComplete
	StatusTrap
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusComplete:
		return "complete"
	case StatusTrap:
		return "trap"
	case StatusTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Frame is one activation record: the function it belongs to, where to
// resume in the caller once it returns (nil for the outermost frame), and
// its own value stack and locals.
type Frame struct {
	Func        module.FunctionID
	Ret         *module.Loc
	ValueStack  []value.Value
	Locals      map[module.LocalID]value.Value
}

// NewFrame starts an empty frame for calling into fn, resuming at ret on
// return (nil if this is the entry frame with nowhere to return to).
func NewFrame(fn module.FunctionID, ret *module.Loc) *Frame {
	return &Frame{Func: fn, Ret: ret, Locals: make(map[module.LocalID]value.Value)}
}

func (f *Frame) Push(v value.Value) { f.ValueStack = append(f.ValueStack, v) }

// Pop removes and returns the top of the value stack; popping an empty
// stack is a programmer error (spec §7 item 3), not a runtime condition.
func (f *Frame) Pop() value.Value {
	n := len(f.ValueStack)
	v := f.ValueStack[n-1]
	f.ValueStack = f.ValueStack[:n-1]
	return v
}

func (f *Frame) Peek() value.Value { return f.ValueStack[len(f.ValueStack)-1] }

func (f *Frame) String() string {
	stack := make([]string, len(f.ValueStack))
	for i, v := range f.ValueStack {
		stack[i] = v.String()
	}
	locals := make([]string, 0, len(f.Locals))
	for id, v := range f.Locals {
		locals = append(locals, fmt.Sprintf("#%d=%s", id, v))
	}
	return fmt.Sprintf("{func=%d, ret=%v, stack=[%s], locals=[%s]}",
		f.Func, f.Ret, strings.Join(stack, ", "), strings.Join(locals, ", "))
}

// State is the call stack plus the linear memory (a symbolic-execution run
// may or may not have declared one).
type State struct {
	CallStack []*Frame
	Memory    *memory.Memory
}

// NewState starts empty; the engine pushes the entry frame itself.
func NewState() *State { return &State{} }

func (s *State) Top() *Frame { return s.CallStack[len(s.CallStack)-1] }

// Simplify runs the solver's term simplifier over every live symbolic
// value reachable from this state: stack, locals, and memory array (spec
// §9 DESIGN NOTES; mirrors the original's State::simplify).
func (s *State) Simplify() {
	for _, frame := range s.CallStack {
		for i := range frame.ValueStack {
			frame.ValueStack[i].Simplify()
		}
		for id, v := range frame.Locals {
			v.Simplify()
			frame.Locals[id] = v
		}
	}
	if s.Memory != nil {
		s.Memory.Array = s.Memory.Array.Simplify()
	}
}

func (s *State) String() string {
	frames := make([]string, len(s.CallStack))
	for i := range s.CallStack {
		frames[i] = s.CallStack[len(s.CallStack)-1-i].String()
	}
	return fmt.Sprintf("{[%s]}", strings.Join(frames, ", "))
}

// CheckResult is a Check's verdict once run at path completion.
type CheckResult struct {
	Kind    CheckResultKind
	Message string
}

type CheckResultKind int

const (
	CheckOk CheckResultKind = iota
	CheckPossibleFail
	CheckFail
)

// Check is the pluggable predicate-accumulation contract every safety
// property implements (spec §4.6): Check is called once per instruction as
// it's stepped, to optionally record a predicate against that instruction's
// location; Run is called once at path completion, discharging every
// recorded predicate against the path's accumulated constraints.
type Check interface {
	Name() string
	Check(ctx *smt.Context, exec *Execution, instr module.Instr)
	Run(ctx *smt.Context, exec *Execution, inputs map[module.LocalID]value.Value) CheckResult
	// Clone returns an independent copy with its own accumulated predicate
	// state, so that seeding a new execution or forking an existing one
	// never lets two paths share the same underlying map.
	Clone() Check
}

var executionCounter uint64

// Execution is one forked path through the program: its state, the
// predicates accumulated so far, where it's positioned, and its own copy
// of every Check (each Check's accumulated constraints are per-path, since
// different forks reach different instructions).
type Execution struct {
	ID          uint64
	State       *State
	Constraints []smt.Bool
	CurBlock    module.BlockID
	CurLocation *module.Loc // nil at the start of CurBlock
	Advance     bool        // skip one extra instruction, used to resume past `call`
	Status      Status
	Trap        TrapReason
	Checks      []Check
	Hotness     map[module.BlockID]uint32
}

// NewExecution starts a fresh, unforked execution positioned at entry.
func NewExecution(st *State, entry module.BlockID) *Execution {
	return &Execution{
		ID:       atomic.AddUint64(&executionCounter, 1),
		State:    st,
		CurBlock: entry,
		Hotness:  make(map[module.BlockID]uint32),
	}
}

// Fork deep-copies an execution for path-splitting instructions (BrIf,
// IfElse): each fork gets a fresh id and its own independent state and
// check bookkeeping so mutating one never affects the other.
func (e *Execution) Fork() *Execution {
	st := &State{Memory: e.State.Memory}
	if e.State.Memory != nil {
		m := *e.State.Memory
		st.Memory = &m
	}
	for _, frame := range e.State.CallStack {
		nf := &Frame{Func: frame.Func, Ret: frame.Ret, Locals: make(map[module.LocalID]value.Value, len(frame.Locals))}
		nf.ValueStack = append([]value.Value(nil), frame.ValueStack...)
		for k, v := range frame.Locals {
			nf.Locals[k] = v
		}
		st.CallStack = append(st.CallStack, nf)
	}

	checks := make([]Check, len(e.Checks))
	for i, c := range e.Checks {
		checks[i] = c.Clone()
	}

	hotness := make(map[module.BlockID]uint32, len(e.Hotness))
	for k, v := range e.Hotness {
		hotness[k] = v
	}

	return &Execution{
		ID:          atomic.AddUint64(&executionCounter, 1),
		State:       st,
		Constraints: append([]smt.Bool(nil), e.Constraints...),
		CurBlock:    e.CurBlock,
		CurLocation: e.CurLocation,
		Advance:     e.Advance,
		Status:      e.Status,
		Trap:        e.Trap,
		Checks:      checks,
		Hotness:     hotness,
	}
}

// AddCheck registers a Check on this execution. Called once per execution
// at initialization, mirroring the original's one-Vec-of-boxed-trait-
// objects-per-path design.
func (e *Execution) AddCheck(c Check) { e.Checks = append(e.Checks, c) }

// GetSolver builds a solver seeded with this execution's accumulated path
// constraints, ready for a caller (a Check's Run, or the reporter) to push
// its own predicate on top.
func (e *Execution) GetSolver(ctx *smt.Context) *smt.Solver {
	return ctx.NewSolver(e.Constraints)
}

// Solve checks satisfiability of the accumulated path constraints alone,
// returning a model if the path is reachable.
func (e *Execution) Solve(ctx *smt.Context) (*smt.Model, bool) {
	solver := e.GetSolver(ctx)
	if solver.Check() == smt.Unsat {
		return nil, false
	}
	return solver.Model(), true
}

func (e *Execution) String() string {
	return fmt.Sprintf("#%d: constraints=%v", e.ID, e.Constraints)
}
