package repository

// ConsistencyResult is the outcome of comparing one logical record across the
// primary and secondary backends. It is produced per check and never
// persisted; the serialized snapshots exist for diagnostics and logging only.
type ConsistencyResult struct {
	IsConsistent   bool
	Differences    []string
	PrimaryValue   string
	SecondaryValue string
}

// Consistent returns a result with no differences.
func Consistent() ConsistencyResult {
	return ConsistencyResult{IsConsistent: true}
}

// Inconsistent returns a result carrying the given differences.
func Inconsistent(differences ...string) ConsistencyResult {
	return ConsistencyResult{IsConsistent: false, Differences: differences}
}
