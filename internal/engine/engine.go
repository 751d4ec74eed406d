// Package engine is the deterministic validation core. It inspects one
// knowledge snapshot against a reference policy and produces a typed,
// reproducible report. The engine is a pure function of its inputs: it
// holds no state between calls, never mutates the snapshot or policy, and
// performs no I/O. Concurrent calls with different snapshots are safe.
package engine

import (
	"github.com/sells-group/kval/internal/model"
)

// Validate runs every registered check against the snapshot and assembles
// the final report. aiReport is optional free-text commentary produced by an
// external collaborator; the engine only attaches it, it never generates it.
func Validate(snap *model.Snapshot, pol *model.Policy, aiReport string) *model.ValidationReport {
	issues := RunAllChecks(snap, pol)
	return BuildReport(snap, pol, issues, aiReport)
}
