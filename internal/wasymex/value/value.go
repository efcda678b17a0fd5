// Package value implements the dual concrete/symbolic i32 domain and its
// operator tables, the engine's semantic ground truth (spec §4.1). Every
// instruction that touches stack or local values goes through here so the
// concrete and symbolic rules for a given opcode can never drift apart.
package value

import (
	"fmt"

	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
)

// Width is fixed: the engine only covers the i32 subset of the bytecode.
const Width = 32

// TrapReason is the closed set of concrete interpretation-time failures.
// Extending it is a source edit, not configuration (spec §9).
type TrapReason int

const (
	// DivisionByZero covers I32DivS/I32DivU/I32RemS/I32RemU with a zero
	// divisor, and the signed overflow case INT_MIN / -1.
	DivisionByZero TrapReason = iota
)

func (t TrapReason) String() string {
	switch t {
	case DivisionByZero:
		return "division by zero"
	default:
		return fmt.Sprintf("TrapReason(%d)", int(t))
	}
}

// Error lets a TrapReason be returned directly as the error half of the
// binary/unary op Result, matching spec §4.1's `Value × Value → Result<Value, TrapReason>`.
func (t TrapReason) Error() string { return t.String() }

// Kind tags which variant a Value currently holds.
type Kind int

const (
	KindConcrete Kind = iota
	KindSymbolic
)

// Value is the tagged union at the core of the data model: a stack slot or
// local is always exactly one of Concrete(i32) or Symbolic(BitVec32).
// Lifting concrete to symbolic happens on demand (AsSymbolic, or the
// concrete side of a mixed BinaryOp); a symbolic value is never lowered back
// to concrete.
type Value struct {
	kind  Kind
	conc  int32
	sym   smt.BV
}

// Concrete wraps a plain i32.
func Concrete(v int32) Value { return Value{kind: KindConcrete, conc: v} }

// Symbolic wraps a 32-bit SMT bit-vector term.
func Symbolic(bv smt.BV) Value { return Value{kind: KindSymbolic, sym: bv} }

// ZeroOf returns the type-appropriate concrete zero; the engine only ever
// has i32 locals, so this is always Concrete(0), but it's named for the
// policy (spec §4.4 "concrete zero") rather than its single current case.
func ZeroOf() Value { return Concrete(0) }

func (v Value) IsConcrete() bool { return v.kind == KindConcrete }
func (v Value) IsSymbolic() bool { return v.kind == KindSymbolic }

// AsConcrete panics if v is not Concrete: a programmer error per spec §7
// item 3 (popping a non-i32/wrong-variant value at a stack boundary).
func (v Value) AsConcrete() int32 {
	if v.kind != KindConcrete {
		panic("value: AsConcrete on a Symbolic value")
	}
	return v.conc
}

// AsSymbolic lifts a Concrete value to a fresh bit-vector literal of the
// same width, or returns the existing symbolic term unchanged.
func (v Value) AsSymbolic(ctx *smt.Context) smt.BV {
	if v.kind == KindSymbolic {
		return v.sym
	}
	return ctx.BVFromInt64(int64(v.conc), Width)
}

// Simplify runs the solver's term simplifier over a symbolic value in
// place; concrete values are untouched. Called after every instruction
// step and once more before the reporter runs checks (spec §9 DESIGN NOTES,
// state.rs State::simplify).
func (v *Value) Simplify() {
	if v.kind == KindSymbolic {
		v.sym = v.sym.Simplify()
	}
}

func (v Value) String() string {
	if v.kind == KindConcrete {
		return fmt.Sprintf("%d: i32", v.conc)
	}
	return fmt.Sprintf("%v: i32", v.sym)
}

// BinOp is the closed set of binary operators the table covers (spec §4.1).
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	DivS
	DivU
	RemS
	RemU
	And
	Or
	Xor
	Shl
	ShrS
	ShrU
	Rotl
	Rotr
	Eq
	Ne
	LtS
	LtU
	GtS
	GtU
	LeS
	LeU
	GeS
	GeU
)

// UnOp is the closed set of unary operators the table covers.
type UnOp int

const (
	Eqz UnOp = iota
)

func boolI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// BinConcrete computes the concrete result of a binary op using wrapping
// arithmetic, per spec §4.1's "Concrete ⊕ Concrete" policy.
func BinConcrete(op BinOp, lhs, rhs int32) (int32, error) {
	switch op {
	case Add:
		return lhs + rhs, nil
	case Sub:
		return lhs - rhs, nil
	case Mul:
		return lhs * rhs, nil
	case DivS:
		if rhs == 0 || (lhs == -2147483648 && rhs == -1) {
			return 0, DivisionByZero
		}
		return lhs / rhs, nil
	case DivU:
		if rhs == 0 {
			return 0, DivisionByZero
		}
		return int32(uint32(lhs) / uint32(rhs)), nil
	case RemS:
		if rhs == 0 {
			return 0, DivisionByZero
		}
		if lhs == -2147483648 && rhs == -1 {
			return 0, nil
		}
		return lhs % rhs, nil
	case RemU:
		if rhs == 0 {
			return 0, DivisionByZero
		}
		return int32(uint32(lhs) % uint32(rhs)), nil
	case And:
		return lhs & rhs, nil
	case Or:
		return lhs | rhs, nil
	case Xor:
		return lhs ^ rhs, nil
	case Shl:
		return lhs << (uint32(rhs) & 31), nil
	case ShrS:
		return lhs >> (uint32(rhs) & 31), nil
	case ShrU:
		return int32(uint32(lhs) >> (uint32(rhs) & 31)), nil
	case Rotl:
		n := uint32(rhs) & 31
		u := uint32(lhs)
		return int32((u << n) | (u >> (32 - n&31) & boolMask(n))), nil
	case Rotr:
		n := uint32(rhs) & 31
		u := uint32(lhs)
		return int32((u >> n) | (u << (32 - n&31) & boolMask(n))), nil
	case Eq:
		return boolI32(lhs == rhs), nil
	case Ne:
		return boolI32(lhs != rhs), nil
	case LtS:
		return boolI32(lhs < rhs), nil
	case LtU:
		return boolI32(uint32(lhs) < uint32(rhs)), nil
	case GtS:
		return boolI32(lhs > rhs), nil
	case GtU:
		return boolI32(uint32(lhs) > uint32(rhs)), nil
	case LeS:
		return boolI32(lhs <= rhs), nil
	case LeU:
		return boolI32(uint32(lhs) <= uint32(rhs)), nil
	case GeS:
		return boolI32(lhs >= rhs), nil
	case GeU:
		return boolI32(uint32(lhs) >= uint32(rhs)), nil
	default:
		panic(fmt.Sprintf("value: unimplemented binary op %d", op))
	}
}

// boolMask avoids UB-shaped shift-by-32 when n==0 for the rotate helpers.
func boolMask(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return ^uint32(0)
}

// BinSymbolic produces the symbolic counterpart of BinConcrete. Comparisons
// are folded back through if-then-else so the stack-width invariant holds.
func BinSymbolic(ctx *smt.Context, op BinOp, lhs, rhs smt.BV) smt.BV {
	one, zero := ctx.One(Width), ctx.Zero(Width)
	shiftMask := ctx.BVFromInt64(31, Width)
	switch op {
	case Add:
		return lhs.Add(rhs)
	case Sub:
		return lhs.Sub(rhs)
	case Mul:
		return lhs.Mul(rhs)
	case DivS:
		return lhs.SDiv(rhs)
	case DivU:
		return lhs.UDiv(rhs)
	case RemS:
		return lhs.SRem(rhs)
	case RemU:
		return lhs.URem(rhs)
	case And:
		return lhs.And(rhs)
	case Or:
		return lhs.Or(rhs)
	case Xor:
		return lhs.Xor(rhs)
	case Shl:
		return lhs.Shl(rhs.And(shiftMask))
	case ShrS:
		return lhs.AShr(rhs.And(shiftMask))
	case ShrU:
		return lhs.LShr(rhs.And(shiftMask))
	case Rotl:
		return lhs.RotL(rhs)
	case Rotr:
		return lhs.RotR(rhs)
	case Eq:
		return lhs.Eq(rhs).Ite(one, zero)
	case Ne:
		return lhs.Eq(rhs).Ite(zero, one)
	case LtS:
		return lhs.SLt(rhs).Ite(one, zero)
	case LtU:
		return lhs.ULt(rhs).Ite(one, zero)
	case GtS:
		return lhs.SGt(rhs).Ite(one, zero)
	case GtU:
		return lhs.UGt(rhs).Ite(one, zero)
	case LeS:
		return lhs.SLe(rhs).Ite(one, zero)
	case LeU:
		return lhs.ULe(rhs).Ite(one, zero)
	case GeS:
		return lhs.SGe(rhs).Ite(one, zero)
	case GeU:
		return lhs.UGe(rhs).Ite(one, zero)
	default:
		panic(fmt.Sprintf("value: unimplemented binary op %d", op))
	}
}

// BinaryOp implements spec §4.1's full ⊕ policy over the tagged union:
// Concrete⊕Concrete computes directly, any symbolic operand lifts the
// other side and dispatches to BinSymbolic.
func BinaryOp(ctx *smt.Context, op BinOp, lhs, rhs Value) (Value, error) {
	if lhs.IsConcrete() && rhs.IsConcrete() {
		result, err := BinConcrete(op, lhs.conc, rhs.conc)
		if err != nil {
			return Value{}, err
		}
		return Concrete(result), nil
	}
	result := BinSymbolic(ctx, op, lhs.AsSymbolic(ctx), rhs.AsSymbolic(ctx))
	return Symbolic(result), nil
}

// UnaryOp implements the unary counterpart for Eqz.
func UnaryOp(ctx *smt.Context, op UnOp, operand Value) (Value, error) {
	if operand.IsConcrete() {
		switch op {
		case Eqz:
			return Concrete(boolI32(operand.conc == 0)), nil
		default:
			panic(fmt.Sprintf("value: unimplemented unary op %d", op))
		}
	}
	switch op {
	case Eqz:
		bv := operand.AsSymbolic(ctx)
		one, zero := ctx.One(Width), ctx.Zero(Width)
		return Symbolic(bv.Eq(ctx.Zero(Width)).Ite(one, zero)), nil
	default:
		panic(fmt.Sprintf("value: unimplemented unary op %d", op))
	}
}
