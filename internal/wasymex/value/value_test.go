package value

import "testing"

func TestBinConcreteWrapping(t *testing.T) {
	cases := []struct {
		name     string
		op       BinOp
		lhs, rhs int32
		want     int32
	}{
		{"add wraps", Add, 2147483647, 1, -2147483648},
		{"sub wraps", Sub, -2147483648, 1, 2147483647},
		{"mul wraps", Mul, 1 << 30, 4, 0},
		{"shl masks shift amount", Shl, 1, 33, 2}, // 33 & 31 == 1
		{"rotl by zero is identity", Rotl, 5, 0, 5},
		{"rotl full circle", Rotl, 5, 32, 5}, // 32 & 31 == 0
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := BinConcrete(c.op, c.lhs, c.rhs)
			if err != nil {
				t.Fatalf("unexpected trap: %v", err)
			}
			if got != c.want {
				t.Errorf("BinConcrete(%v, %d, %d) = %d, want %d", c.op, c.lhs, c.rhs, got, c.want)
			}
		})
	}
}

func TestBinConcreteDivisionTraps(t *testing.T) {
	cases := []struct {
		name     string
		op       BinOp
		lhs, rhs int32
	}{
		{"div_s by zero", DivS, 10, 0},
		{"div_u by zero", DivU, 10, 0},
		{"rem_s by zero", RemS, 10, 0},
		{"rem_u by zero", RemU, 10, 0},
		{"div_s overflow", DivS, -2147483648, -1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := BinConcrete(c.op, c.lhs, c.rhs)
			if err != DivisionByZero {
				t.Fatalf("BinConcrete(%v, %d, %d) = err %v, want DivisionByZero", c.op, c.lhs, c.rhs, err)
			}
		})
	}
}

func TestBinConcreteRemSOverflowIsZeroNotTrap(t *testing.T) {
	got, err := BinConcrete(RemS, -2147483648, -1)
	if err != nil {
		t.Fatalf("unexpected trap: %v", err)
	}
	if got != 0 {
		t.Errorf("RemS(INT_MIN, -1) = %d, want 0", got)
	}
}

func TestBinConcreteUnsignedComparisons(t *testing.T) {
	// -1 as u32 is the largest unsigned value, so it's greater than 1.
	got, err := BinConcrete(GtU, -1, 1)
	if err != nil {
		t.Fatalf("unexpected trap: %v", err)
	}
	if got != 1 {
		t.Errorf("GtU(-1, 1) = %d, want 1 (true)", got)
	}
}

func TestBinaryOpLiftsConcreteToSymbolic(t *testing.T) {
	ctx := testContext(t)
	lhs := Concrete(5)
	rhs := Symbolic(ctx.BVConst("x", Width))

	result, err := BinaryOp(ctx, Add, lhs, rhs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsSymbolic() {
		t.Errorf("Concrete ⊕ Symbolic should produce Symbolic, got %v", result)
	}
}

func TestUnaryOpEqz(t *testing.T) {
	got, err := UnaryOp(nil, Eqz, Concrete(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AsConcrete() != 1 {
		t.Errorf("Eqz(0) = %d, want 1", got.AsConcrete())
	}

	got, err = UnaryOp(nil, Eqz, Concrete(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AsConcrete() != 0 {
		t.Errorf("Eqz(5) = %d, want 0", got.AsConcrete())
	}
}
