package retention

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hurricup/leaks-collector/internal/retention/faketest"
)

func TestIsLeaf(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"string instance", Node{Kind: KindInstance, ClassName: "java.lang.String"}, true},
		{"boxed integer", Node{Kind: KindInstance, ClassName: "java.lang.Integer"}, true},
		{"boxed boolean", Node{Kind: KindInstance, ClassName: "java.lang.Boolean"}, true},
		{"plain instance", Node{Kind: KindInstance, ClassName: "com.example.Widget"}, false},
		{"string array", Node{Kind: KindObjectArray, ArrayClassName: "java.lang.String[]"}, true},
		{"object array", Node{Kind: KindObjectArray, ArrayClassName: "com.example.Widget[]"}, false},
		{"class object", Node{Kind: KindClassObject, ClassName: "com.example.Widget"}, false},
		{"primitive array", Node{Kind: KindPrimitiveArray}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLeaf(tt.node))
		})
	}
}

func TestIsWeakReferenceHierarchy(t *testing.T) {
	o := faketest.New().
		Superclass("com.example.MyWeakRef", "java.lang.ref.WeakReference").
		Superclass("com.example.Plain", "java.lang.Object")

	assert.True(t, IsWeakReferenceHierarchy(o, "java.lang.ref.WeakReference"))
	assert.True(t, IsWeakReferenceHierarchy(o, "com.example.MyWeakRef"))
	assert.False(t, IsWeakReferenceHierarchy(o, "com.example.Plain"))
	assert.False(t, IsWeakReferenceHierarchy(o, "com.example.Unknown"))
}

func TestIsWeakReferenceHierarchy_CyclicAncestryTerminates(t *testing.T) {
	o := faketest.New().Superclass("A", "B").Superclass("B", "A")
	assert.False(t, IsWeakReferenceHierarchy(o, "A"))
}

func TestIsStrongRoot(t *testing.T) {
	assert.True(t, IsStrongRoot(RootJNIGlobal))
	assert.True(t, IsStrongRoot(RootThreadObject))
	assert.False(t, IsStrongRoot(RootStickyClass))
	assert.False(t, IsStrongRoot(RootUnreachable))
	assert.False(t, IsStrongRoot(RootInternedString))
	assert.False(t, IsStrongRoot(RootUnknown))
}
