package module

import (
	"fmt"
	"io"

	"github.com/go-interpreter/wagon/disasm"
	"github.com/go-interpreter/wagon/wasm"
	ops "github.com/go-interpreter/wagon/wasm/operators"

	"github.com/wasymex/wasymex-go/internal/wasymex/value"
)

// Load decodes a binary WASM module from r and adapts it into the tree
// this package's engine consumes. Decoding and disassembly themselves are
// wagon's job (spec §1: "parsing of the bytecode container format" is an
// external concern); this function's own work is reconstructing wagon's
// flat, block-annotated instruction stream into the nested Block tree the
// flow pre-pass and engine expect.
func Load(r io.Reader) (*Module, error) {
	wm, err := wasm.ReadModule(r, nil)
	if err != nil {
		return nil, fmt.Errorf("module: decode wasm: %w", err)
	}

	b := NewBuilder()
	if wm.Memory != nil {
		for _, m := range wm.Memory.Entries {
			b.Memory(m.Limits.Initial)
		}
	}

	if wm.Import != nil {
		for _, entry := range wm.Import.Entries {
			if entry.Type.Kind() != wasm.ExternalFunction {
				continue
			}
			b.ImportFunc(entry.FieldName)
		}
	}

	if wm.Function == nil {
		return b.Build(), nil
	}

	for i, typeIdx := range wm.Function.Types {
		sig := wm.Types.Entries[typeIdx]
		// Export indices count imported functions first, as FunctionIDs do.
		name := functionName(wm, len(b.m.Funcs))

		fb := b.Func(name, paramTypes(sig)...)
		if wm.Code == nil || i >= len(wm.Code.Bodies) {
			continue
		}
		body := wm.Code.Bodies[i]

		for _, local := range body.Locals {
			for j := uint32(0); j < local.Count; j++ {
				fb.Local(convertValType(local.Type))
			}
		}

		dis, err := disasm.NewDisassembly(wasm.Function{Body: &body}, wm)
		if err != nil {
			return nil, fmt.Errorf("module: disassemble function %d: %w", i, err)
		}
		if err := convertBody(fb, dis.Code); err != nil {
			return nil, fmt.Errorf("module: convert function %d: %w", i, err)
		}
	}

	return b.Build(), nil
}

func functionName(wm *wasm.Module, index int) string {
	if wm.Export == nil {
		return ""
	}
	for name, e := range wm.Export.Entries {
		if e.Kind == wasm.ExternalFunction && int(e.Index) == index {
			return name
		}
	}
	return ""
}

func paramTypes(sig wasm.FunctionSig) []ValType {
	out := make([]ValType, len(sig.ParamTypes))
	for i, t := range sig.ParamTypes {
		out[i] = convertValType(t)
	}
	return out
}

func convertValType(t wasm.ValueType) ValType {
	if t == wasm.ValueTypeI32 {
		return I32
	}
	// Non-i32 value types are out of scope (spec §1 Non-goals); callers
	// that reach this path on a real module have hit unsupported surface.
	panic(fmt.Sprintf("module: unsupported value type %v", t))
}

// convertBody reconstructs nested blocks from wagon's flat, block/end
// annotated disassembly by walking it with an explicit stack of open
// cursors, mirroring the structure a recursive-descent decoder would have
// produced directly.
func convertBody(fb *FuncBuilder, flat []disasm.Instr) error {
	type frame struct {
		cur  *BlockCursor
		mark *BlockCursor // "else" target for an open if, nil otherwise
	}
	stack := []frame{{cur: fb.EntryBlock()}}
	var openTargets []*BlockCursor // one entry per open block/loop/if, for br/br_if resolution

	top := func() *frame { return &stack[len(stack)-1] }

	for _, instr := range flat {
		switch instr.Op.Name {
		case "block":
			c := top().cur.Block()
			openTargets = append(openTargets, c)
			stack = append(stack, frame{cur: c})
		case "loop":
			c := top().cur.Loop()
			openTargets = append(openTargets, c)
			stack = append(stack, frame{cur: c})
		case "if":
			cons, alt := top().cur.IfElse()
			openTargets = append(openTargets, cons)
			stack = append(stack, frame{cur: cons, mark: alt})
		case "else":
			f := top()
			if f.mark == nil {
				return fmt.Errorf("else with no matching if")
			}
			stack[len(stack)-1] = frame{cur: f.mark}
		case "end":
			if len(stack) == 1 {
				continue // end of the function body itself
			}
			stack = stack[:len(stack)-1]
			if len(openTargets) > 0 {
				openTargets = openTargets[:len(openTargets)-1]
			}
		case "br":
			idx := instr.Immediates[0].(uint32)
			target := openTargets[len(openTargets)-1-int(idx)]
			top().cur.Br(target)
		case "br_if":
			idx := instr.Immediates[0].(uint32)
			target := openTargets[len(openTargets)-1-int(idx)]
			top().cur.BrIf(target)
		default:
			if err := convertPlainOp(top().cur, instr); err != nil {
				return err
			}
		}
	}
	return nil
}

// memArgOffset reads the static offset out of a load/store's memarg
// immediates, which wagon packs as [align, offset] (spec §4.5: the static
// offset is added to the popped dynamic index to form the effective
// address).
func memArgOffset(instr disasm.Instr) int32 {
	return int32(instr.Immediates[1].(uint32))
}

func convertPlainOp(c *BlockCursor, instr disasm.Instr) error {
	switch instr.Op {
	case ops.Drop:
		c.Drop()
	case ops.I32Const:
		c.Const(instr.Immediates[0].(int32))
	case ops.GetLocal:
		c.LocalGet(LocalID(instr.Immediates[0].(uint32)))
	case ops.SetLocal:
		c.LocalSet(LocalID(instr.Immediates[0].(uint32)))
	case ops.TeeLocal:
		c.LocalTee(LocalID(instr.Immediates[0].(uint32)))
	case ops.GetGlobal:
		c.GlobalGet(instr.Immediates[0].(uint32))
	case ops.SetGlobal:
		c.GlobalSet(instr.Immediates[0].(uint32))
	case ops.Select:
		c.Select()
	case ops.Call:
		c.Call(FunctionID(instr.Immediates[0].(uint32)))
	case ops.Return:
		c.Return()
	case ops.CurrentMemory:
		c.MemorySize()
	case ops.GrowMemory:
		c.MemoryGrow()
	case ops.I32Add:
		c.Binop(value.Add)
	case ops.I32Sub:
		c.Binop(value.Sub)
	case ops.I32Mul:
		c.Binop(value.Mul)
	case ops.I32DivS:
		c.Binop(value.DivS)
	case ops.I32DivU:
		c.Binop(value.DivU)
	case ops.I32RemS:
		c.Binop(value.RemS)
	case ops.I32RemU:
		c.Binop(value.RemU)
	case ops.I32And:
		c.Binop(value.And)
	case ops.I32Or:
		c.Binop(value.Or)
	case ops.I32Xor:
		c.Binop(value.Xor)
	case ops.I32Shl:
		c.Binop(value.Shl)
	case ops.I32ShrS:
		c.Binop(value.ShrS)
	case ops.I32ShrU:
		c.Binop(value.ShrU)
	case ops.I32Rotl:
		c.Binop(value.Rotl)
	case ops.I32Rotr:
		c.Binop(value.Rotr)
	case ops.I32Eq:
		c.Binop(value.Eq)
	case ops.I32Ne:
		c.Binop(value.Ne)
	case ops.I32LtS:
		c.Binop(value.LtS)
	case ops.I32LtU:
		c.Binop(value.LtU)
	case ops.I32GtS:
		c.Binop(value.GtS)
	case ops.I32GtU:
		c.Binop(value.GtU)
	case ops.I32LeS:
		c.Binop(value.LeS)
	case ops.I32LeU:
		c.Binop(value.LeU)
	case ops.I32GeS:
		c.Binop(value.GeS)
	case ops.I32GeU:
		c.Binop(value.GeU)
	case ops.I32Eqz:
		c.Unop(value.Eqz)
	case ops.I32Load:
		c.Load(memArgOffset(instr), 32, 32, false)
	case ops.I32Load8s:
		c.Load(memArgOffset(instr), 8, 32, false)
	case ops.I32Load8u:
		c.Load(memArgOffset(instr), 8, 32, true)
	case ops.I32Load16s:
		c.Load(memArgOffset(instr), 16, 32, false)
	case ops.I32Load16u:
		c.Load(memArgOffset(instr), 16, 32, true)
	case ops.I32Store:
		c.Store(memArgOffset(instr), 32)
	case ops.I32Store8:
		c.Store(memArgOffset(instr), 8)
	case ops.I32Store16:
		c.Store(memArgOffset(instr), 16)
	case ops.Nop:
		// no-op; nothing to emit
	default:
		return fmt.Errorf("module: unimplemented opcode %s", instr.Op.Name)
	}
	return nil
}
