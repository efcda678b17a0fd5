package wasymex

// Config configures an Engine before Analyze is called.
type Config struct {
	// MaxHotness bounds how many times a loop's body may be entered along
	// a single path before that path is abandoned as terminated. Zero
	// means DefaultConfig's value.
	MaxHotness uint32

	// Funcs, if non-empty, limits analysis to these functions, each given
	// either by its exported name or its numeric index; an empty slice
	// analyzes every local function.
	Funcs []string

	// Quiet suppresses the analyzer's own structured log lines (the
	// terminal report is unaffected).
	Quiet bool
}

// DefaultConfig returns the configuration the original tool exercises by
// default: one pass through every loop body before a path is terminated.
func DefaultConfig() *Config {
	return &Config{MaxHotness: 1}
}
