package gbwt

// Verbosity controls how much construction progress is written to the log.
type Verbosity int

const (
	// VerbositySilent suppresses all diagnostics.
	VerbositySilent Verbosity = iota
	// VerbosityBasic reports end-to-end totals.
	VerbosityBasic
	// VerbosityExtended adds per-batch ranges and iteration counts.
	VerbosityExtended
	// VerbosityFull adds resize and recode chatter.
	VerbosityFull
)

var verbosity = VerbositySilent

// SetVerbosity sets the package diagnostic level. Not safe to call while a
// Builder worker is running.
func SetVerbosity(v Verbosity) { verbosity = v }

func verbose(v Verbosity) bool { return verbosity >= v }
