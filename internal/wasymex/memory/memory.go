// Package memory models one WASM linear memory as a byte-addressed SMT
// array: every load or store lowers to a sequence of single-byte
// select/store operations on that array, concatenated or extracted at the
// boundary with the 32-bit value domain (spec §4.3).
package memory

import (
	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
	"github.com/wasymex/wasymex-go/internal/wasymex/value"
)

// PageSize is the fixed size, in bytes, of one WASM memory page.
const PageSize = 65536

// Memory is one linear memory: a page count (itself a Value so a symbolic
// memory.grow can leave it unresolved) plus a byte array indexed by a
// 32-bit address.
type Memory struct {
	Size  value.Value
	Array smt.Array
}

// New builds a memory with the given initial page count, zero-filled.
func New(ctx *smt.Context, initialPages uint32) Memory {
	return Memory{
		Size:  value.Concrete(int32(initialPages)),
		Array: ctx.ConstArray(32, ctx.Zero(8)),
	}
}

// DoLoad reads accessBits worth of little-endian bytes starting at
// baseIndex and widens the result to resultBits, matching the original's
// byte-at-a-time select-then-concat followed by sign or zero extension.
func DoLoad(ctx *smt.Context, mem Memory, baseIndex value.Value, accessBits, resultBits uint32, zeroExtend bool) (value.Value, error) {
	numBytes := int(accessBits / 8)
	bytes := make([]smt.BV, numBytes)
	for i := 0; i < numBytes; i++ {
		idxVal, err := value.BinaryOp(ctx, value.Add, baseIndex, value.Concrete(int32(i)))
		if err != nil {
			return value.Value{}, err
		}
		idx := idxVal.AsSymbolic(ctx)
		bytes[i] = mem.Array.Select(idx)
	}

	result := bytes[numBytes-1]
	for i := 0; i < numBytes-1; i++ {
		result = result.Concat(bytes[numBytes-i-2])
	}

	if resultBits == accessBits {
		return value.Symbolic(result), nil
	}
	if zeroExtend {
		return value.Symbolic(result.ZeroExtend(resultBits - accessBits)), nil
	}
	return value.Symbolic(result.SignExtend(resultBits - accessBits)), nil
}

// DoStore writes storeBits worth of v, little-endian, starting at baseIndex.
func DoStore(ctx *smt.Context, mem *Memory, baseIndex, v value.Value, storeBits uint32) error {
	numBytes := int(storeBits / 8)
	sym := v.AsSymbolic(ctx)

	for i := 0; i < numBytes; i++ {
		idxVal, err := value.BinaryOp(ctx, value.Add, baseIndex, value.Concrete(int32(i)))
		if err != nil {
			return err
		}
		idx := idxVal.AsSymbolic(ctx)
		byteVal := sym.Extract(uint(i*8+7), uint(i*8))
		mem.Array = mem.Array.Store(idx, byteVal)
	}
	return nil
}

// Grow extends the memory's page count by delta pages. Its result is delta
// itself, not the prior page count: -1-on-failure/return-old-size wasm
// semantics are not modeled here (spec's Non-goals exclude memory.grow
// failure), and nothing in the source this was ported from treats the
// pushed value as anything but the operand it was given.
func Grow(ctx *smt.Context, mem *Memory, delta value.Value) (value.Value, error) {
	next, err := value.BinaryOp(ctx, value.Add, mem.Size, delta)
	if err != nil {
		return value.Value{}, err
	}
	mem.Size = next
	return delta, nil
}
