package wasymex

import (
	"errors"
	"testing"

	"github.com/wasymex/wasymex-go/internal/wasymex/module"
	"github.com/wasymex/wasymex-go/internal/wasymex/value"
)

func buildAddModule() *module.Module {
	b := module.NewBuilder()
	fb := b.Func("add", module.I32, module.I32)
	entry := fb.EntryBlock()
	entry.LocalGet(0)
	entry.LocalGet(1)
	entry.Binop(value.Add)
	entry.Return()
	return b.Build()
}

func TestAnalyzeFuncRunsToCompletion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quiet = true

	eng := FromModule(buildAddModule(), cfg)
	if err := eng.AnalyzeFunc("add"); err != nil {
		t.Fatalf("AnalyzeFunc: %v", err)
	}
}

func TestAnalyzeFuncUnknownNameReturnsFunctionNotFound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quiet = true

	eng := FromModule(buildAddModule(), cfg)
	err := eng.AnalyzeFunc("nope")
	if err == nil {
		t.Fatal("expected an error for an unknown function name")
	}
	var wasymexErr *Error
	if !errors.As(err, &wasymexErr) {
		t.Fatalf("error was not a *wasymex.Error: %v", err)
	}
	if wasymexErr.Code != ErrFunctionNotFound {
		t.Errorf("Code = %v, want ErrFunctionNotFound", wasymexErr.Code)
	}
}

func TestAnalyzeRespectsFuncsFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quiet = true
	cfg.Funcs = []string{"add"}

	eng := FromModule(buildAddModule(), cfg)
	if err := eng.Analyze(); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
}
