package retention

import "github.com/hurricup/leaks-collector/pkg/utils"

// StepKind tags a resolved hop in a finalized retention chain.
type StepKind int

const (
	StepRoot StepKind = iota
	StepField
	StepArrayElement
	StepTarget
)

// Step is one human-readable hop in a retention chain, resolved from a
// parent/child id pair by reopening the parent via the graph oracle.
type Step struct {
	Kind       StepKind
	ClassName  string
	FieldName  string // StepField only
	ArrayIndex int     // StepArrayElement only; -1 if unresolved
	ObjectID   uint64
	RootKind   RootKind // StepRoot only
}

// FullChain returns a PathRecord's ids in root-first order, ending with
// target: [root, ..., direct_parent, target]. ids_from_target is stored
// target-first (direct parent at index 0, root last), so this is its
// reverse with target appended.
func FullChain(r PathRecord, target uint64) []uint64 {
	n := len(r.IDsFromTarget)
	chain := make([]uint64, 0, n+1)
	for i := n - 1; i >= 0; i-- {
		chain = append(chain, r.IDsFromTarget[i])
	}
	chain = append(chain, target)
	return chain
}

// ResolveChain turns a finalized id chain (root first, ..., target last)
// into a sequence of Steps a reporter can render. parent == child pairs
// (spec.md §9's explicit root-edge suppression) contribute no step beyond
// the root's own Step.
func ResolveChain(oracle GraphOracle, ids []uint64, rootKind RootKind, log utils.Logger) []Step {
	if len(ids) == 0 {
		return nil
	}

	steps := make([]Step, 0, len(ids))
	steps = append(steps, Step{Kind: StepRoot, ObjectID: ids[0], RootKind: rootKind})

	for i := 0; i < len(ids)-1; i++ {
		parent, child := ids[i], ids[i+1]
		if parent == child {
			continue
		}
		steps = append(steps, resolveEdge(oracle, parent, child, log))
	}

	last := ids[len(ids)-1]
	node, _ := oracle.Resolve(last)
	className := node.ClassName
	if className == "" {
		className = node.ArrayClassName
	}
	steps = append(steps, Step{Kind: StepTarget, ClassName: className, ObjectID: last})

	return steps
}

// resolveEdge reopens parent and finds the declared field, static field, or
// array index whose value is child. Collisions resolve to the
// first-declared field (or lowest index); an unresolvable edge degrades to
// a "?" field name and a logged warning rather than aborting the run.
func resolveEdge(oracle GraphOracle, parent, child uint64, log utils.Logger) Step {
	node, ok := oracle.Resolve(parent)
	if !ok {
		warnf(log, "edge resolver: parent %d vanished while resolving edge to %d", parent, child)
		return Step{Kind: StepField, ClassName: "?", FieldName: "?", ObjectID: child}
	}

	switch node.Kind {
	case KindInstance, KindClassObject:
		for _, f := range node.Fields {
			if f.Value == child {
				return Step{Kind: StepField, ClassName: node.ClassName, FieldName: f.Name, ObjectID: child}
			}
		}
		warnf(log, "edge resolver: no field on %s (%d) points to %d", node.ClassName, parent, child)
		return Step{Kind: StepField, ClassName: node.ClassName, FieldName: "?", ObjectID: child}

	case KindObjectArray:
		for _, e := range node.Elements {
			if e.Value == child {
				return Step{Kind: StepArrayElement, ClassName: node.ArrayClassName, ArrayIndex: e.Index, ObjectID: child}
			}
		}
		warnf(log, "edge resolver: no element of %s (%d) points to %d", node.ArrayClassName, parent, child)
		return Step{Kind: StepArrayElement, ClassName: node.ArrayClassName, ArrayIndex: -1, ObjectID: child}

	default:
		warnf(log, "edge resolver: parent %d has no outgoing references, cannot resolve edge to %d", parent, child)
		return Step{Kind: StepField, ClassName: "?", FieldName: "?", ObjectID: child}
	}
}

func warnf(log utils.Logger, format string, args ...interface{}) {
	if log != nil {
		log.Warn(format, args...)
	}
}
