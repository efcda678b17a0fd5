// Package smt wraps the single Z3 solver context shared across an analysis
// run: bit-vector and array term construction, and the push/pop solver used
// to discharge path and check queries.
//
// wasymex-go treats the SMT backend the same way the original wasymex
// treated the z3 crate: an external collaborator consumed through a narrow
// AST + solver interface, never constructed by the engine itself.
package smt

import (
	z3 "github.com/aclements/go-z3/z3"
)

// Context owns the process-lifetime Z3 context. One Context is shared
// read-only by every Execution in an analysis run.
type Context struct {
	z3 *z3.Context
}

// NewContext creates a fresh Z3 context with default configuration.
func NewContext() *Context {
	return &Context{z3: z3.NewContext(z3.NewContextConfig())}
}

// Raw exposes the underlying z3.Context for callers that need it directly.
func (c *Context) Raw() *z3.Context { return c.z3 }

// BV is a bit-vector term, symbolic or a literal built via BVFromInt64.
type BV struct{ v z3.BV }

// Bool is a boolean term: path constraints and check predicates are Bools.
type Bool struct{ v z3.Bool }

// Array is an SMT array term: our memory model's sole storage primitive.
type Array struct{ v z3.Array }

// BVConst creates a fresh named bit-vector constant of the given width.
// Symbolic function parameters are named "local<index>" so counter-example
// models can be reported back against the source locals.
func (c *Context) BVConst(name string, bits uint) BV {
	return BV{c.z3.Const(name, c.z3.BVSort(bits)).(z3.BV)}
}

// BVFromInt64 builds a bit-vector literal of the given width.
func (c *Context) BVFromInt64(value int64, bits uint) BV {
	return BV{c.z3.FromInt(value, c.z3.BVSort(bits)).(z3.BV)}
}

// Zero returns the bit-vector literal 0 of the given width.
func (c *Context) Zero(bits uint) BV { return c.BVFromInt64(0, bits) }

// One returns the bit-vector literal 1 of the given width.
func (c *Context) One(bits uint) BV { return c.BVFromInt64(1, bits) }

func (v BV) Width() uint { return v.v.Sort().BVSize() }

func (v BV) Add(o BV) BV    { return BV{v.v.Add(o.v)} }
func (v BV) Sub(o BV) BV    { return BV{v.v.Sub(o.v)} }
func (v BV) Mul(o BV) BV    { return BV{v.v.Mul(o.v)} }
func (v BV) SDiv(o BV) BV   { return BV{v.v.SDiv(o.v)} }
func (v BV) UDiv(o BV) BV   { return BV{v.v.UDiv(o.v)} }
func (v BV) SRem(o BV) BV   { return BV{v.v.SRem(o.v)} }
func (v BV) URem(o BV) BV   { return BV{v.v.URem(o.v)} }
func (v BV) And(o BV) BV    { return BV{v.v.And(o.v)} }
func (v BV) Or(o BV) BV     { return BV{v.v.Or(o.v)} }
func (v BV) Xor(o BV) BV    { return BV{v.v.Xor(o.v)} }
func (v BV) Shl(o BV) BV    { return BV{v.v.Lsh(o.v)} }
func (v BV) LShr(o BV) BV   { return BV{v.v.URsh(o.v)} }
func (v BV) AShr(o BV) BV   { return BV{v.v.SRsh(o.v)} }
func (v BV) RotL(o BV) BV   { return BV{v.v.RotateLeft(o.v)} }
func (v BV) RotR(o BV) BV   { return BV{v.v.RotateRight(o.v)} }
func (v BV) Concat(lo BV) BV { return BV{v.v.Concat(lo.v)} }

// Extract pulls bits [hi:lo] (inclusive) out of v.
func (v BV) Extract(hi, lo uint) BV { return BV{v.v.Extract(hi, lo)} }

func (v BV) SignExtend(extra uint) BV { return BV{v.v.SignExtend(extra)} }
func (v BV) ZeroExtend(extra uint) BV { return BV{v.v.ZeroExtend(extra)} }

func (v BV) Eq(o BV) Bool  { return Bool{v.v.Eq(o.v)} }
func (v BV) Ne(o BV) Bool  { return Bool{v.v.Eq(o.v).Not()} }
func (v BV) SLt(o BV) Bool { return Bool{v.v.SLT(o.v)} }
func (v BV) ULt(o BV) Bool { return Bool{v.v.ULT(o.v)} }
func (v BV) SGt(o BV) Bool { return Bool{v.v.SGT(o.v)} }
func (v BV) UGt(o BV) Bool { return Bool{v.v.UGT(o.v)} }
func (v BV) SLe(o BV) Bool { return Bool{v.v.SLE(o.v)} }
func (v BV) ULe(o BV) Bool { return Bool{v.v.ULE(o.v)} }
func (v BV) SGe(o BV) Bool { return Bool{v.v.SGE(o.v)} }
func (v BV) UGe(o BV) Bool { return Bool{v.v.UGE(o.v)} }

// Simplify applies the Z3 term simplifier, used after every live state
// mutation to keep symbolic terms from growing unboundedly along a path.
func (v BV) Simplify() BV { return BV{v.v.Simplify()} }

func (b Bool) Not() Bool       { return Bool{b.v.Not()} }
func (b Bool) And(o Bool) Bool { return Bool{b.v.And(o.v)} }

// Ite builds `if b then t else e`, the only way a comparison result is
// folded back into the bit-vector-width stack invariant.
func (b Bool) Ite(t, e BV) BV { return BV{b.v.IfThenElse(t.v, e.v).(z3.BV)} }

// ConstArray builds an array of the given index width whose every cell
// reads as the literal default (zero, for a freshly-constructed memory).
func (c *Context) ConstArray(indexBits uint, def BV) Array {
	return Array{c.z3.ConstArray(c.z3.BVSort(indexBits), def.v)}
}

func (a Array) Select(index BV) BV        { return BV{a.v.Select(index.v).(z3.BV)} }
func (a Array) Store(index, value BV) Array { return Array{a.v.Store(index.v, value.v)} }
func (a Array) Simplify() Array           { return Array{a.v.Simplify()} }

// Solver is a push/pop incremental solver seeded with an execution's path
// constraints; checks push their own predicate on top and pop it off.
type Solver struct{ z3 *z3.Solver }

// SatResult mirrors z3.SatResult: Unknown is treated as Sat by callers per
// the "unsoundness favors reporting, not silence" rule in spec §7.
type SatResult int

const (
	Unsat SatResult = iota
	Sat
	Unknown
)

// NewSolver builds a solver and asserts every given constraint.
func (c *Context) NewSolver(constraints []Bool) *Solver {
	s := c.z3.NewSolver()
	for _, constraint := range constraints {
		s.Assert(constraint.v)
	}
	return &Solver{z3: s}
}

func (s *Solver) Assert(b Bool) { s.z3.Assert(b.v) }
func (s *Solver) Push()         { s.z3.Push() }
func (s *Solver) Pop(n uint)    { s.z3.Pop(n) }

func (s *Solver) Check() SatResult {
	switch s.z3.Check() {
	case z3.Sat:
		return Sat
	case z3.Unsat:
		return Unsat
	default:
		return Unknown
	}
}

// Model is a satisfying assignment produced by the last Sat Check.
type Model struct{ z3 *z3.Model }

func (s *Solver) Model() *Model { return &Model{z3: s.z3.Model()} }

// EvalBV evaluates a bit-vector term against the model, forcing a
// complete assignment for any free variable the model left unconstrained.
func (m *Model) EvalBV(v BV) BV {
	return BV{m.z3.Eval(v.v, true).(z3.BV)}
}

// Int64 reads out a concrete bit-vector literal's value, used once a term
// has been evaluated against a model.
func (v BV) Int64() int64 { return v.v.AsInt64() }
