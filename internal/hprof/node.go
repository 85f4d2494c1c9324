package hprof

// NodeKind tags the four heap-dump object shapes the core distinguishes.
type NodeKind int

const (
	KindInstance NodeKind = iota
	KindObjectArray
	KindClassObject
	KindPrimitiveArray
)

// FieldRef is one declared reference-typed field or static field, in
// declaration order, with its current value (0 if null).
type FieldRef struct {
	Name  string
	Value uint64
}

// Element is one object-array slot, in index order.
type Element struct {
	Index int
	Value uint64
}

// Node is a read-only view of one heap object, resolved by id. Its shape
// depends on Kind: Fields is populated for KindInstance (declared instance
// fields, superclass-first) and KindClassObject (static fields); Elements is
// populated for KindObjectArray. KindPrimitiveArray carries neither — it has
// no outgoing references.
type Node struct {
	ID             uint64
	Kind           NodeKind
	ClassName      string
	ArrayClassName string
	Fields         []FieldRef
	Elements       []Element
}
