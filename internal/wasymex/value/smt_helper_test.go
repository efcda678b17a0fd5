package value

import (
	"testing"

	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
)

func testContext(t *testing.T) *smt.Context {
	t.Helper()
	return smt.NewContext()
}
