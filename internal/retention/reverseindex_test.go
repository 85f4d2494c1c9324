package retention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurricup/leaks-collector/internal/retention/faketest"
)

func TestBuildReverseIndex_SimpleChain(t *testing.T) {
	// Root A(10) (JNIGlobal).field -> B(20).field -> Target(30)
	o := faketest.New().
		Root(10, RootJNIGlobal).
		Instance(10, "A", faketest.Field("field", 20)).
		Instance(20, "B", faketest.Field("field", 30)).
		Instance(30, "Target")

	ri := BuildReverseIndex(o, nil)

	assert.Equal(t, []uint64{10}, ri.Parents(20))
	assert.Equal(t, []uint64{20}, ri.Parents(30))
	kind, ok := ri.RootKind(10)
	require.True(t, ok)
	assert.Equal(t, RootJNIGlobal, kind)
}

func TestBuildReverseIndex_SkipsLeafChildren(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(1, "A", faketest.Field("s", 2), faketest.Field("next", 3)).
		Instance(2, "java.lang.String").
		Instance(3, "B")

	ri := BuildReverseIndex(o, nil)

	assert.Empty(t, ri.Parents(2), "string child should never get an entry")
	assert.Equal(t, []uint64{1}, ri.Parents(3))
}

func TestBuildReverseIndex_SkipsWeakReferenceParents(t *testing.T) {
	o := faketest.New().
		Superclass("com.example.MyWeakRef", "java.lang.ref.WeakReference").
		Root(1, RootJNIGlobal).
		Instance(1, "A", faketest.Field("ref", 2)).
		Instance(2, "com.example.MyWeakRef", faketest.Field("referent", 3)).
		Instance(3, "Target")

	ri := BuildReverseIndex(o, nil)

	assert.Equal(t, []uint64{1}, ri.Parents(2))
	assert.Empty(t, ri.Parents(3), "a weak reference must not contribute an edge to its referent")
}

func TestBuildReverseIndex_SkipsSyntheticFields(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(1, "A", faketest.Field("<hidden>", 2), faketest.Field("real", 3)).
		Instance(2, "Ghost").
		Instance(3, "Target")

	ri := BuildReverseIndex(o, nil)

	assert.Empty(t, ri.Parents(2))
	assert.Equal(t, []uint64{1}, ri.Parents(3))
}

func TestBuildReverseIndex_ObjectArrayAndClassObject(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		ObjectArray(1, "com.example.Widget[]", 2, 3).
		Instance(2, "Widget").
		ClassObject(3, "Holder", faketest.Field("INSTANCE", 4)).
		Instance(4, "Target")

	ri := BuildReverseIndex(o, nil)

	assert.Equal(t, []uint64{1}, ri.Parents(2))
	assert.Equal(t, []uint64{1}, ri.Parents(3))
	assert.Equal(t, []uint64{3}, ri.Parents(4))
}

func TestBuildReverseIndex_SkipsStringArrayLeaves(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		ObjectArray(1, "java.lang.String[]", 2).
		Instance(2, "NeverVisited")

	ri := BuildReverseIndex(o, nil)

	assert.Empty(t, ri.Parents(2))
}

func TestBuildReverseIndex_DanglingChildDropped(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(1, "A", faketest.Field("gone", 999))

	ri := BuildReverseIndex(o, nil)

	assert.Empty(t, ri.Parents(999))
}

func TestBuildReverseIndex_DuplicateParentsPreserved(t *testing.T) {
	// Two distinct parents both reference the same child: both entries
	// must survive, in discovery order.
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Root(2, RootJNIGlobal).
		Instance(1, "A", faketest.Field("f", 10)).
		Instance(2, "B", faketest.Field("f", 10)).
		Instance(10, "Target")

	ri := BuildReverseIndex(o, nil)

	parents := ri.Parents(10)
	assert.Equal(t, []uint64{1, 2}, parents)
}

func TestBuildReverseIndex_IgnoresObjectsUnreachableFromRoots(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(1, "A").
		Instance(99, "Orphan", faketest.Field("f", 1))

	ri := BuildReverseIndex(o, nil)

	assert.Empty(t, ri.Parents(1), "orphan is never swept, so it never contributes an edge")
}

func TestBuildReverseIndex_ExcludedRootKindsNotStrong(t *testing.T) {
	o := faketest.New().
		Root(1, RootUnreachable).
		Instance(1, "A", faketest.Field("f", 2)).
		Instance(2, "B")

	ri := BuildReverseIndex(o, nil)

	assert.Empty(t, ri.Parents(2), "sweep never starts from a non-strong root")
	_, ok := ri.RootKind(1)
	assert.False(t, ok)
}
