package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/kval/internal/model"
)

// dependencyTypes are the relation types eligible for cycle analysis. Other
// types (e.g. "implements") still get provenance/reference checks elsewhere
// but never form cycle edges.
var dependencyTypes = map[string]bool{
	"depends_on": true,
	"requires":   true,
	"parent_of":  true,
}

// IsDependencyRelation reports whether the relation type takes part in cycle
// analysis.
func IsDependencyRelation(relType string) bool {
	return dependencyTypes[relType]
}

// checkRelationCycles validates relation confidence ranges, then builds the
// dependency graph and emits one issue per distinct cycle.
func checkRelationCycles(snap *model.Snapshot, _ *model.Policy) []model.Issue {
	var issues []model.Issue
	for _, r := range snap.Relations {
		if r.Confidence != nil && (*r.Confidence < 0 || *r.Confidence > 1) {
			issue := malformedField("relation.confidence", fmt.Sprintf("%v", *r.Confidence), nil)
			issue.RelationRef = r.Source + "->" + r.Target
			issues = append(issues, issue)
		}
	}
	for _, cycle := range findCycles(snap.Relations) {
		ref := strings.Join(append(append([]string(nil), cycle...), cycle[0]), "->")
		issues = append(issues, model.Issue{
			Code:            model.CodeRelationshipCycle,
			Severity:        severityFor[model.CodeRelationshipCycle],
			Message:         fmt.Sprintf("Cyclic dependency detected: %s.", ref),
			EntityIDs:       append([]string(nil), cycle...),
			RelationRef:     ref,
			Details:         map[string]any{"cycle": cycle},
			SuggestedAction: "Break the cycle by removing or redirecting one dependency.",
		})
	}
	return issues
}

// findCycles detects directed cycles among dependency-like relations using a
// three-color depth-first traversal: a back edge into an in-progress (gray)
// node closes a cycle. Each distinct cycle is returned once, rotated to start
// at its lowest entity id. Nodes and adjacency lists are visited in sorted
// order so output is deterministic. Runs in O(V+E); handles disconnected
// graphs, isolated nodes, and self-loops (a cycle of length one).
func findCycles(relations []model.Relation) [][]string {
	adj := make(map[string][]string)
	edgeSeen := make(map[[2]string]bool)
	var nodes []string
	nodeSeen := make(map[string]bool)

	addNode := func(id string) {
		if !nodeSeen[id] {
			nodeSeen[id] = true
			nodes = append(nodes, id)
		}
	}
	for _, r := range relations {
		if !dependencyTypes[r.Type] || r.Source == "" || r.Target == "" {
			continue
		}
		addNode(r.Source)
		addNode(r.Target)
		key := [2]string{r.Source, r.Target}
		if edgeSeen[key] {
			continue // parallel edges would report the same cycle twice
		}
		edgeSeen[key] = true
		adj[r.Source] = append(adj[r.Source], r.Target)
	}
	sort.Strings(nodes)
	for id := range adj {
		sort.Strings(adj[id])
	}

	const (
		white = iota // unvisited
		gray         // in progress, on the stack
		black        // done
	)
	color := make(map[string]int, len(nodes))
	var stack []string
	var cycles [][]string
	cycleSeen := make(map[string]bool)

	var visit func(string)
	visit = func(n string) {
		color[n] = gray
		stack = append(stack, n)
		for _, m := range adj[n] {
			switch color[m] {
			case white:
				visit(m)
			case gray:
				// Back edge: the cycle is the stack segment from m to n.
				start := len(stack) - 1
				for start >= 0 && stack[start] != m {
					start--
				}
				cycle := canonicalCycle(stack[start:])
				key := strings.Join(cycle, "\x1f")
				if !cycleSeen[key] {
					cycleSeen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}

	for _, n := range nodes {
		if color[n] == white {
			visit(n)
		}
	}
	return cycles
}

// canonicalCycle copies the cycle rotated so it starts at its lowest id.
// Edge order within the cycle is preserved.
func canonicalCycle(cycle []string) []string {
	lowest := 0
	for i, id := range cycle {
		if id < cycle[lowest] {
			lowest = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[lowest:]...)
	out = append(out, cycle[:lowest]...)
	return out
}
