// Package retention implements retention-path discovery over a parsed heap
// snapshot: given a set of target object ids, it finds the chain of
// references holding each one reachable from a GC root.
package retention

import "github.com/hurricup/leaks-collector/internal/hprof"

// NodeKind re-exports hprof's object-shape tag for callers that only import
// this package.
type NodeKind = hprof.NodeKind

const (
	KindInstance       = hprof.KindInstance
	KindObjectArray    = hprof.KindObjectArray
	KindClassObject    = hprof.KindClassObject
	KindPrimitiveArray = hprof.KindPrimitiveArray
)

// Node, FieldRef, Element and GCRoot re-export hprof's value types so
// callers outside this package never need to import hprof directly.
type (
	Node     = hprof.Node
	FieldRef = hprof.FieldRef
	Element  = hprof.Element
	GCRoot   = hprof.GCRoot
	RootKind = hprof.RootKind
)

// GraphOracle is the read-only heap-object graph the core consumes. It is
// satisfied by *hprof.Snapshot; tests satisfy it with an in-memory fake.
type GraphOracle interface {
	// Exists reports whether id names a known object.
	Exists(id uint64) bool

	// Resolve returns the tagged node for id, or ok=false if unknown.
	Resolve(id uint64) (Node, bool)

	// IterateInstances returns every INSTANCE_DUMP object id, in the order
	// the heap dump recorded them.
	IterateInstances() []uint64

	// GCRoots returns every GC root recorded in the dump.
	GCRoots() []GCRoot

	// SuperclassName returns the declared superclass of className, if any.
	SuperclassName(className string) (string, bool)
}
