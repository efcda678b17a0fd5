// Package engine runs the worklist-based symbolic execution scheduler: it
// steps one Execution at a time off a FIFO queue, forking a new Execution
// onto the queue whenever a path genuinely splits, until every path has
// reached Complete, Trap, or Terminated (spec §4.4, §4.5).
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wasymex/wasymex-go/internal/wasymex/memory"
	"github.com/wasymex/wasymex-go/internal/wasymex/module"
	"github.com/wasymex/wasymex-go/internal/wasymex/reporter"
	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
	"github.com/wasymex/wasymex-go/internal/wasymex/state"
	"github.com/wasymex/wasymex-go/internal/wasymex/value"
)

// Engine holds everything shared across an analysis run: the SMT context,
// the module being analyzed, each local function's precomputed flow Info,
// the worklist of not-yet-complete executions, and the checks every fresh
// execution is seeded with.
type Engine struct {
	ctx        *smt.Context
	mod        *module.Module
	info       map[module.FunctionID]*module.Info
	executions []*state.Execution
	checks     []state.Check
	maxHotness uint32
	log        *zap.Logger
}

// New builds an engine over mod, sharing ctx with every Execution it
// schedules. log may be nil.
func New(ctx *smt.Context, mod *module.Module, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		ctx:        ctx,
		mod:        mod,
		info:       make(map[module.FunctionID]*module.Info),
		maxHotness: 1,
		log:        log,
	}
}

// SetMaxHotness bounds how many times a block may be entered along a
// single path before that path is abandoned as Terminated (spec §4.5).
func (e *Engine) SetMaxHotness(max uint32) { e.maxHotness = max }

// AddCheck registers a check template; every execution this engine starts
// gets its own independent copy.
func (e *Engine) AddCheck(c state.Check) { e.checks = append(e.checks, c) }

// Initialize runs the flow pre-pass over every local function in the
// module, caching the result for stepExecution's branch resolution.
func (e *Engine) Initialize() {
	for _, fn := range e.mod.Funcs {
		if fn.Kind == module.KindLocal {
			e.info[fn.ID] = module.ComputeInfo(fn)
		}
	}
}

// GetInputs returns one fresh symbolic bit-vector per parameter of fn,
// named "local<N>" so a counter-example model reads back against the
// source locals.
func (e *Engine) GetInputs(fn *module.Function) map[module.LocalID]value.Value {
	inputs := make(map[module.LocalID]value.Value, len(fn.Params))
	for _, id := range fn.Params {
		inputs[id] = value.Symbolic(e.ctx.BVConst(fmt.Sprintf("local%d", id), value.Width))
	}
	return inputs
}

// GetInitialExecution builds the single starting Execution for fn: a
// fresh frame with every parameter bound to a symbolic input and every
// other referenced local zero-initialized, plus a Memory sized to the
// module's declared memory. State holds a single Memory: if the module
// declares several, only the last one is modeled.
func (e *Engine) GetInitialExecution(fn *module.Function) *state.Execution {
	inputs := e.GetInputs(fn)
	frame := state.NewFrame(fn.ID, nil)
	for id, v := range inputs {
		frame.Locals[id] = v
	}

	info := e.info[fn.ID]
	for local := range info.Locals {
		if _, ok := frame.Locals[local]; !ok {
			frame.Locals[local] = value.ZeroOf()
		}
	}

	st := state.NewState()
	st.CallStack = append(st.CallStack, frame)
	for _, m := range e.mod.Memories {
		mem := memory.New(e.ctx, m.Initial)
		st.Memory = &mem
	}

	return state.NewExecution(st, fn.Body.Entry)
}

// GetFuncExecutions drives fn (starting from initial, or a fresh start if
// nil) to completion, returning every Complete/Trap/Terminated execution
// it produced.
func (e *Engine) GetFuncExecutions(fn *module.Function, initial *state.Execution) []*state.Execution {
	exec := initial
	if exec == nil {
		exec = e.GetInitialExecution(fn)
	}
	for _, c := range e.checks {
		exec.AddCheck(c.Clone())
	}

	e.pushExecution(exec)
	return e.collectExecutions()
}

// AnalyzeFunc runs fn to completion and prints the full report: the
// collected paths, then each path's check verdicts (spec §6).
func (e *Engine) AnalyzeFunc(fn *module.Function, name string) {
	e.log.Info("analyzing function", zap.String("name", name))

	executions := e.GetFuncExecutions(fn, nil)
	inputs := e.GetInputs(fn)
	for _, exec := range executions {
		exec.State.Simplify()
	}

	rep := reporter.New(e.log)
	rep.ReportFunc(name)
	rep.ReportExecutions(executions)

	var completed []*state.Execution
	for _, exec := range executions {
		if exec.Status == state.StatusComplete || exec.Status == state.StatusTrap {
			completed = append(completed, exec)
		}
	}

	rep.ReportChecks(e.ctx, inputs, completed)
}

func (e *Engine) pushExecution(exec *state.Execution) { e.executions = append(e.executions, exec) }

func (e *Engine) popExecution() (*state.Execution, bool) {
	if len(e.executions) == 0 {
		return nil, false
	}
	exec := e.executions[0]
	e.executions = e.executions[1:]
	return exec, true
}

func (e *Engine) collectExecutions() []*state.Execution {
	var completed []*state.Execution
	for {
		exec, ok := e.popExecution()
		if !ok {
			break
		}
		if done := e.stepExecution(exec); done != nil {
			completed = append(completed, done)
		}
	}
	return completed
}

func (e *Engine) doJumpToSeq(exec *state.Execution, seq module.BlockID) {
	exec.CurBlock = seq
	exec.CurLocation = nil
}

// doBranch resolves a branch target against fn's flow Info: Block targets
// resume after the block ends, Loop targets re-enter at their own start.
// Returns true if target has no resolvable end (it's the function's
// implicit outer block, i.e. this is really a function return).
func (e *Engine) doBranch(info *module.Info, exec *state.Execution, target module.BlockID) bool {
	end, ok := info.Ends[target]
	if !ok {
		return true
	}

	switch info.Kinds[target] {
	case module.KindLoopSeq:
		exec.CurBlock = target
		exec.CurLocation = nil
	default:
		exec.CurBlock = end.Block
		loc := end
		exec.CurLocation = &loc
	}
	return false
}

// stepExecution runs exec forward until it either completes a path
// (returns non-nil), or hands control back to the queue by pushing a
// continuation (possibly more than one, for a fork) and returning nil.
func (e *Engine) stepExecution(exec *state.Execution) *state.Execution {
	frame := exec.State.Top()
	fn := e.mod.Func(frame.Func)
	info := e.info[fn.ID]
	block := fn.Block(exec.CurBlock)

	skipped := exec.CurLocation == nil
	if exec.CurLocation == nil {
		exec.Hotness[block.ID]++
	}
	if exec.Hotness[block.ID] > e.maxHotness {
		exec.Status = state.StatusTerminated
		return exec
	}

instrLoop:
	for _, instr := range block.Instrs {
		if exec.CurLocation != nil && !skipped {
			if exec.CurLocation.At != instr.Loc.At || exec.CurLocation.Block != instr.Loc.Block {
				continue
			}
		}
		skipped = true
		loc := instr.Loc
		exec.CurLocation = &loc

		if exec.Advance {
			exec.Advance = false
			continue
		}

		for _, c := range exec.Checks {
			c.Check(e.ctx, exec, instr)
		}

		frame := exec.State.Top()
		switch op := instr.Op.(type) {
		case module.OpDrop:
			frame.Pop()

		case module.OpUnop:
			operand := frame.Pop()
			result, err := value.UnaryOp(e.ctx, op.Op, operand)
			if err != nil {
				exec.Status = state.StatusTrap
				exec.Trap = err.(value.TrapReason)
				return exec
			}
			frame.Push(result)

		case module.OpBinop:
			rhs := frame.Pop()
			lhs := frame.Pop()
			result, err := value.BinaryOp(e.ctx, op.Op, lhs, rhs)
			if err != nil {
				exec.Status = state.StatusTrap
				exec.Trap = err.(value.TrapReason)
				return exec
			}
			frame.Push(result)

		case module.OpConst:
			frame.Push(value.Concrete(op.Value))

		case module.OpLocalGet:
			frame.Push(frame.Locals[op.Local])

		case module.OpLocalSet:
			frame.Locals[op.Local] = frame.Pop()

		case module.OpLocalTee:
			frame.Locals[op.Local] = frame.Peek()

		case module.OpSelect:
			cond := frame.Pop()
			rhs := frame.Pop()
			lhs := frame.Pop()
			condBV := cond.AsSymbolic(e.ctx)
			result := condBV.Eq(e.ctx.Zero(value.Width)).Ite(lhs.AsSymbolic(e.ctx), rhs.AsSymbolic(e.ctx))
			frame.Push(value.Symbolic(result))

		case module.OpGlobalGet:
			// Globals are not modeled beyond this placeholder (spec §9
			// DESIGN NOTES): every get reads as concrete zero.
			frame.Push(value.Concrete(0))

		case module.OpGlobalSet:
			frame.Pop()

		case module.OpBlock:
			e.doJumpToSeq(exec, op.Seq)
			e.pushExecution(exec)
			return nil

		case module.OpLoop:
			e.doJumpToSeq(exec, op.Seq)
			e.pushExecution(exec)
			return nil

		case module.OpBr:
			if e.doBranch(info, exec, op.Target) {
				break instrLoop
			}
			e.pushExecution(exec)
			return nil

		case module.OpBrIf:
			cond := frame.Pop()
			if cond.IsConcrete() {
				if cond.AsConcrete() != 0 {
					if e.doBranch(info, exec, op.Target) {
						break instrLoop
					}
					e.pushExecution(exec)
					return nil
				}
				continue
			}

			sym := cond.AsSymbolic(e.ctx)
			trueExec := exec.Fork()
			trueExec.Constraints = append(trueExec.Constraints, sym.Eq(e.ctx.Zero(value.Width)).Not())
			if e.doBranch(info, trueExec, op.Target) {
				// The target has no resolvable end: treat it like the
				// original does, which silently drops the true fork
				// rather than resolving it as a function return here.
				break instrLoop
			}
			exec.Constraints = append(exec.Constraints, sym.Eq(e.ctx.Zero(value.Width)))
			e.pushExecution(trueExec)

		case module.OpIfElse:
			cond := frame.Pop()
			if cond.IsConcrete() {
				if cond.AsConcrete() != 0 {
					exec.CurBlock = op.Consequent
				} else {
					exec.CurBlock = op.Alternative
				}
				exec.CurLocation = nil
				e.pushExecution(exec)
				return nil
			}

			sym := cond.AsSymbolic(e.ctx)
			trueExec := exec.Fork()
			trueExec.Constraints = append(trueExec.Constraints, sym.Eq(e.ctx.Zero(value.Width)).Not())
			trueExec.CurBlock = op.Consequent
			trueExec.CurLocation = nil

			falseExec := exec.Fork()
			falseExec.Constraints = append(falseExec.Constraints, sym.Eq(e.ctx.Zero(value.Width)))
			falseExec.CurBlock = op.Alternative
			falseExec.CurLocation = nil

			e.pushExecution(trueExec)
			e.pushExecution(falseExec)
			return nil

		case module.OpCall:
			target := e.mod.Func(op.Func)
			if target.Kind != module.KindLocal {
				panic("engine: call to a function with no body")
			}
			args := make([]value.Value, len(target.Params))
			for i := len(target.Params) - 1; i >= 0; i-- {
				args[i] = frame.Pop()
			}

			retLoc := instr.Loc
			newFrame := state.NewFrame(target.ID, &retLoc)
			for i, param := range target.Params {
				newFrame.Locals[param] = args[i]
			}

			targetInfo := e.info[target.ID]
			for local := range targetInfo.Locals {
				if _, ok := newFrame.Locals[local]; !ok {
					newFrame.Locals[local] = value.ZeroOf()
				}
			}

			exec.State.CallStack = append(exec.State.CallStack, newFrame)
			exec.CurBlock = target.Body.Entry
			exec.CurLocation = nil
			e.pushExecution(exec)
			return nil

		case module.OpReturn:
			exec.Status = state.StatusComplete
			return exec

		case module.OpMemorySize:
			frame.Push(exec.State.Memory.Size)

		case module.OpMemoryGrow:
			numPages := frame.Pop()
			result, err := memory.Grow(e.ctx, exec.State.Memory, numPages)
			if err != nil {
				panic(err)
			}
			frame.Push(result)

		case module.OpLoad:
			index := frame.Pop()
			accessIndex, err := value.BinaryOp(e.ctx, value.Add, value.Concrete(op.Offset), index)
			if err != nil {
				panic(err)
			}
			result, err := memory.DoLoad(e.ctx, *exec.State.Memory, accessIndex, op.AccessBits, op.ResultBits, op.ZeroExtend)
			if err != nil {
				panic(err)
			}
			frame.Push(result)

		case module.OpStore:
			v := frame.Pop()
			index := frame.Pop()
			accessIndex, err := value.BinaryOp(e.ctx, value.Add, value.Concrete(op.Offset), index)
			if err != nil {
				panic(err)
			}
			if err := memory.DoStore(e.ctx, exec.State.Memory, accessIndex, v, op.StoreBits); err != nil {
				panic(err)
			}

		default:
			panic(fmt.Sprintf("engine: unhandled instruction %T", op))
		}

		exec.State.Simplify()
	}

	exec.Advance = false
	end, ok := info.Ends[block.ID]
	if !ok {
		oldFrame := exec.State.CallStack[len(exec.State.CallStack)-1]
		exec.State.CallStack = exec.State.CallStack[:len(exec.State.CallStack)-1]
		if len(exec.State.CallStack) == 0 {
			exec.Status = state.StatusComplete
			exec.State.CallStack = append(exec.State.CallStack, oldFrame)
			return exec
		}

		prevFrame := exec.State.Top()
		ret := oldFrame.Ret
		exec.CurBlock = ret.Block
		loc := *ret
		exec.CurLocation = &loc
		exec.Advance = true
		prevFrame.ValueStack = append(prevFrame.ValueStack, oldFrame.ValueStack...)
		e.pushExecution(exec)
		return nil
	}

	exec.CurBlock = end.Block
	loc := end
	exec.CurLocation = &loc
	e.pushExecution(exec)
	return nil
}
