package retention

import (
	"fmt"
	"sort"
	"strings"
)

// FinalizedPath is one surviving, edge-resolved retention chain for one
// target object.
type FinalizedPath struct {
	TargetID uint64
	Steps    []Step
}

// Group collects every target sharing one canonical retention signature.
// Signature is the group's identity, preserved in first-seen order.
type Group struct {
	Signature string
	Exemplar  []Step
	TargetIDs []uint64
}

// DependentClass collects targets for which the walker found no
// independent path, keyed by class name for the report's final section.
type DependentClass struct {
	ClassName string
	TargetIDs []uint64
}

// Signature renders a finalized step sequence into its canonical,
// array-index-erased form: two chains differing only in which slot of an
// object array they passed through collapse to the same signature.
func Signature(steps []Step) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		switch s.Kind {
		case StepRoot:
			parts = append(parts, fmt.Sprintf("Root[%s]", s.RootKind))
		case StepField:
			parts = append(parts, fmt.Sprintf("%s.%s", s.ClassName, s.FieldName))
		case StepArrayElement:
			parts = append(parts, fmt.Sprintf("%s[*]", s.ClassName))
		case StepTarget:
			parts = append(parts, s.ClassName)
		}
	}
	return strings.Join(parts, " -> ")
}

// GroupPaths canonicalizes every finalized path into a signature, groups
// targets sharing a signature (retaining the first-observed path as the
// group's exemplar), and sorts groups by target count descending. Ties
// keep their first-seen relative order (Go's sort.SliceStable).
func GroupPaths(paths []FinalizedPath) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, p := range paths {
		sig := Signature(p.Steps)
		if i, ok := index[sig]; ok {
			groups[i].TargetIDs = append(groups[i].TargetIDs, p.TargetID)
			continue
		}
		index[sig] = len(groups)
		groups = append(groups, Group{
			Signature: sig,
			Exemplar:  p.Steps,
			TargetIDs: []uint64{p.TargetID},
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].TargetIDs) > len(groups[j].TargetIDs)
	})

	return groups
}

// GroupDependents groups dependent target ids by the class name their
// object resolves to, for the report's trailing "held by a path above"
// section.
func GroupDependents(oracle GraphOracle, targetIDs []uint64) []DependentClass {
	index := make(map[string]int)
	var out []DependentClass

	for _, id := range targetIDs {
		node, _ := oracle.Resolve(id)
		className := node.ClassName
		if className == "" {
			className = node.ArrayClassName
		}
		if i, ok := index[className]; ok {
			out[i].TargetIDs = append(out[i].TargetIDs, id)
			continue
		}
		index[className] = len(out)
		out = append(out, DependentClass{ClassName: className, TargetIDs: []uint64{id}})
	}

	return out
}
