package retention

import (
	"strings"

	"github.com/hurricup/leaks-collector/pkg/collections"
	"github.com/hurricup/leaks-collector/pkg/utils"
)

// ReverseIndex maps every reachable object to the parents that reference it,
// discovered by a forward sweep from strong GC roots. The walker consumes
// it to step backward from a target toward a root.
type ReverseIndex struct {
	parents map[uint64][]uint64
	roots   map[uint64]RootKind
}

// Parents returns the recorded parents of id, in first-discovered order.
func (ri *ReverseIndex) Parents(id uint64) []uint64 {
	return ri.parents[id]
}

// RootKind returns the GC root kind id was recorded under, if it is itself
// a root.
func (ri *ReverseIndex) RootKind(id uint64) (RootKind, bool) {
	k, ok := ri.roots[id]
	return k, ok
}

// BuildReverseIndex performs one forward BFS over the live object graph
// starting at every strong GC root, appending every traversed parent of each
// child in the order the edges were discovered (duplicates included).
// Objects unreachable from any strong root never appear in the index and can
// never anchor a retention path. Leaf children (strings, boxed values,
// string arrays) are neither recorded nor traversed; weak/soft/phantom
// reference instances are traversed but never contribute outgoing edges.
func BuildReverseIndex(oracle GraphOracle, log utils.Logger) *ReverseIndex {
	ri := &ReverseIndex{
		parents: make(map[uint64][]uint64),
		roots:   make(map[uint64]RootKind),
	}

	visited := make(map[uint64]bool)
	queue := collections.NewQueue[uint64](1024)

	for _, root := range oracle.GCRoots() {
		if !IsStrongRoot(root.Kind) {
			continue
		}
		if _, ok := ri.roots[root.ObjectID]; !ok {
			ri.roots[root.ObjectID] = root.Kind
		}
		if visited[root.ObjectID] {
			continue
		}
		visited[root.ObjectID] = true
		queue.Enqueue(root.ObjectID)
	}

	swept := 0
	edges := 0
	for {
		id, ok := queue.Dequeue()
		if !ok {
			break
		}
		swept++

		node, ok := oracle.Resolve(id)
		if !ok {
			continue
		}

		for _, child := range outgoingReferences(oracle, node) {
			if child == id {
				continue
			}
			childNode, ok := oracle.Resolve(child)
			if !ok {
				debugf(log, "reverse index: dangling reference %d -> %d dropped", id, child)
				continue
			}
			if IsLeaf(childNode) {
				continue
			}
			ri.parents[child] = append(ri.parents[child], id)
			edges++
			if !visited[child] {
				visited[child] = true
				queue.Enqueue(child)
			}
		}
	}

	debugf(log, "reverse index built: %d nodes swept, %d edges recorded, %d roots", swept, edges, len(ri.roots))
	return ri
}

// debugf logs a debug message if log is configured, matching the teacher's
// nil-safe debugf helper.
func debugf(log utils.Logger, format string, args ...interface{}) {
	if log != nil {
		log.Debug(format, args...)
	}
}

// outgoingReferences returns every non-null reference a node holds, in
// declaration/index order, honoring the leaf filter's "excluded as parent"
// rules and dropping synthetic fields (names starting with '<').
func outgoingReferences(oracle GraphOracle, n Node) []uint64 {
	switch n.Kind {
	case KindInstance:
		if IsLeaf(n) || IsWeakReferenceHierarchy(oracle, n.ClassName) {
			return nil
		}
		return fieldValues(n.Fields)
	case KindClassObject:
		return fieldValues(n.Fields)
	case KindObjectArray:
		if IsLeaf(n) {
			return nil
		}
		out := make([]uint64, 0, len(n.Elements))
		for _, e := range n.Elements {
			out = append(out, e.Value)
		}
		return out
	default:
		return nil
	}
}

func fieldValues(fields []FieldRef) []uint64 {
	out := make([]uint64, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f.Name, "<") {
			continue
		}
		out = append(out, f.Value)
	}
	return out
}
