// Package faketest provides an in-memory GraphOracle fake for exercising
// the retention-path core without a real HPROF file, grounded in the
// teacher's internal/mock pattern of hand-written fakes alongside real
// code.
package faketest

import "github.com/hurricup/leaks-collector/internal/retention"

type object struct {
	kind      retention.NodeKind
	className string
	arrayName string
	fields    []retention.FieldRef
	elements  []retention.Element
}

// Oracle is a hand-built, in-memory retention.GraphOracle. Tests construct
// one with the builder methods below, then hand it to BuildReverseIndex or
// WalkTarget the same way production code hands it a *hprof.Snapshot.
type Oracle struct {
	objects   map[uint64]*object
	roots     []retention.GCRoot
	superOf   map[string]string
}

// New returns an empty Oracle.
func New() *Oracle {
	return &Oracle{
		objects: make(map[uint64]*object),
		superOf: make(map[string]string),
	}
}

// Instance registers an instance object. fields is declaration order;
// a zero value is treated as null and skipped, matching the real parser.
func (o *Oracle) Instance(id uint64, className string, fields ...retention.FieldRef) *Oracle {
	var nonNull []retention.FieldRef
	for _, f := range fields {
		if f.Value != 0 {
			nonNull = append(nonNull, f)
		}
	}
	o.objects[id] = &object{kind: retention.KindInstance, className: className, fields: nonNull}
	return o
}

// ObjectArray registers an object-array object. ids is slot order; a zero
// value is a null element and skipped.
func (o *Oracle) ObjectArray(id uint64, arrayClassName string, ids ...uint64) *Oracle {
	var elements []retention.Element
	for i, v := range ids {
		if v != 0 {
			elements = append(elements, retention.Element{Index: i, Value: v})
		}
	}
	o.objects[id] = &object{kind: retention.KindObjectArray, arrayName: arrayClassName, elements: elements}
	return o
}

// ClassObject registers a class's metadata object, whose static fields are
// indexed like any other parent's outgoing references.
func (o *Oracle) ClassObject(id uint64, className string, staticFields ...retention.FieldRef) *Oracle {
	var nonNull []retention.FieldRef
	for _, f := range staticFields {
		if f.Value != 0 {
			nonNull = append(nonNull, f)
		}
	}
	o.objects[id] = &object{kind: retention.KindClassObject, className: className, fields: nonNull}
	return o
}

// PrimitiveArray registers a primitive array, which has no outgoing
// references.
func (o *Oracle) PrimitiveArray(id uint64) *Oracle {
	o.objects[id] = &object{kind: retention.KindPrimitiveArray}
	return o
}

// Root registers id as a GC root of the given kind.
func (o *Oracle) Root(id uint64, kind retention.RootKind) *Oracle {
	o.roots = append(o.roots, retention.GCRoot{ObjectID: id, Kind: kind})
	return o
}

// Superclass records className's declared superclass, consulted by the
// weak-reference hierarchy check.
func (o *Oracle) Superclass(className, superClassName string) *Oracle {
	o.superOf[className] = superClassName
	return o
}

// Field is a small constructor so tests read as a table of edges rather
// than nested struct literals.
func Field(name string, value uint64) retention.FieldRef {
	return retention.FieldRef{Name: name, Value: value}
}

func (o *Oracle) Exists(id uint64) bool {
	_, ok := o.objects[id]
	return ok
}

func (o *Oracle) Resolve(id uint64) (retention.Node, bool) {
	obj, ok := o.objects[id]
	if !ok {
		return retention.Node{}, false
	}
	return retention.Node{
		ID:             id,
		Kind:           obj.kind,
		ClassName:      obj.className,
		ArrayClassName: obj.arrayName,
		Fields:         obj.fields,
		Elements:       obj.elements,
	}, true
}

// IterateInstances returns every registered instance id. The ids come from
// a map, so their order is not defined and differs between calls.
func (o *Oracle) IterateInstances() []uint64 {
	var out []uint64
	for id, obj := range o.objects {
		if obj.kind == retention.KindInstance {
			out = append(out, id)
		}
	}
	return out
}

func (o *Oracle) GCRoots() []retention.GCRoot {
	return o.roots
}

func (o *Oracle) SuperclassName(className string) (string, bool) {
	s, ok := o.superOf[className]
	return s, ok
}
