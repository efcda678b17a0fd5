// Package wasymex is the public facade over the symbolic execution engine:
// load a WASM module, configure the analysis, and run it function by
// function, printing a report of every execution path and the safety
// checks discharged against it.
package wasymex

import (
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/wasymex/wasymex-go/internal/wasymex/checks"
	"github.com/wasymex/wasymex-go/internal/wasymex/engine"
	"github.com/wasymex/wasymex-go/internal/wasymex/module"
	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
)

// Engine is the public handle on one analysis run over one module.
type Engine struct {
	ctx   *smt.Context
	mod   *module.Module
	eng   *engine.Engine
	log   *zap.Logger
	funcs map[string]struct{} // nil means "analyze everything"
}

// Load decodes a WASM binary from r and builds an Engine ready to analyze
// it, wired with the default DivisionByZero and out-of-bounds-memory
// checks.
func Load(r io.Reader, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	mod, err := module.Load(r)
	if err != nil {
		return nil, &Error{Code: ErrModuleDecode, Message: "failed to decode module", Cause: err}
	}

	return newEngine(mod, cfg), nil
}

// FromModule builds an Engine over an already-constructed module.Module,
// the path tests use instead of decoding a binary.
func FromModule(mod *module.Module, cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return newEngine(mod, cfg)
}

func newEngine(mod *module.Module, cfg *Config) *Engine {
	var log *zap.Logger
	if cfg.Quiet {
		log = zap.NewNop()
	} else {
		log, _ = zap.NewProduction()
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx := smt.NewContext()
	eng := engine.New(ctx, mod, log)

	maxHotness := cfg.MaxHotness
	if maxHotness == 0 {
		maxHotness = DefaultConfig().MaxHotness
	}
	eng.SetMaxHotness(maxHotness)

	eng.AddCheck(checks.NewDivisionByZero())
	eng.AddCheck(checks.NewOutOfBoundsMemory())

	eng.Initialize()

	var funcs map[string]struct{}
	if len(cfg.Funcs) > 0 {
		funcs = make(map[string]struct{}, len(cfg.Funcs))
		for _, name := range cfg.Funcs {
			funcs[name] = struct{}{}
		}
	}

	return &Engine{ctx: ctx, mod: mod, eng: eng, log: log, funcs: funcs}
}

// Analyze runs every local function in the module (or, if Config.Funcs was
// set, only the named ones), printing each one's report as it completes.
func (e *Engine) Analyze() error {
	for _, fn := range e.mod.Funcs {
		if fn.Kind != module.KindLocal {
			continue
		}
		if !e.wanted(fn) {
			continue
		}
		e.eng.AnalyzeFunc(fn, fn.Name)
	}
	return nil
}

// AnalyzeFunc runs a single function, named either by its export name or,
// for functions with no export, its numeric index.
func (e *Engine) AnalyzeFunc(name string) error {
	fn, ok := e.resolveFunc(name)
	if !ok {
		return &Error{Code: ErrFunctionNotFound, Message: "no such function: " + name}
	}
	e.eng.AnalyzeFunc(fn, fn.Name)
	return nil
}

// resolveFunc looks up a function by export name, falling back to treating
// name as a numeric FunctionID when no export matches.
func (e *Engine) resolveFunc(name string) (*module.Function, bool) {
	if fn, ok := e.mod.FuncByName(name); ok {
		return fn, true
	}
	idx, err := strconv.ParseUint(name, 10, 32)
	if err != nil || idx >= uint64(len(e.mod.Funcs)) {
		return nil, false
	}
	return e.mod.Func(module.FunctionID(idx)), true
}

func (e *Engine) wanted(fn *module.Function) bool {
	if e.funcs == nil {
		return true
	}
	if _, ok := e.funcs[fn.Name]; ok {
		return true
	}
	_, ok := e.funcs[strconv.FormatUint(uint64(fn.ID), 10)]
	return ok
}
