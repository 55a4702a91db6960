package logger

// OutputCategory is a kind of CLI output shown from some verbosity up.
//
// Levels filter log entries by severity; categories decide which parts of
// a command's own report are printed.
type OutputCategory int

const (
	// Level 0 (default)
	OutputSummary     OutputCategory = iota // Run summary table
	OutputDiagnostics                       // Warnings and errors with hints

	// Level 1 (-v)
	OutputTiming // Per-stage timing table

	// Level 2 (-vv)
	OutputAudit      // Erasure audit without --audit
	OutputGraphStats // Type graph statistics after generate
)

var categoryLevels = map[OutputCategory]int{
	OutputSummary:     VerbosityUser,
	OutputDiagnostics: VerbosityUser,
	OutputTiming:      VerbosityInfo,
	OutputAudit:       VerbosityDebug,
	OutputGraphStats:  VerbosityDebug,
}

// ShouldOutput reports whether category is shown at verbosity. Unknown
// categories need the highest verbosity.
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

var categoryNames = map[OutputCategory]string{
	OutputSummary:     "summary",
	OutputDiagnostics: "diagnostics",
	OutputTiming:      "timing",
	OutputAudit:       "audit",
	OutputGraphStats:  "graph-stats",
}

// CategoryName returns the name of an output category.
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}
