package retention

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hurricup/leaks-collector/internal/retention/faketest"
)

func TestFullChain_ReversesAndAppendsTarget(t *testing.T) {
	r := PathRecord{IDsFromTarget: []uint64{20, 10}, RootID: 10}
	assert.Equal(t, []uint64{10, 20, 30}, FullChain(r, 30))
}

func TestFullChain_SingleHop(t *testing.T) {
	r := PathRecord{IDsFromTarget: []uint64{1}, RootID: 1}
	assert.Equal(t, []uint64{1, 30}, FullChain(r, 30))
}

func TestResolveChain_FieldAndTarget(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(1, "A", faketest.Field("field", 20)).
		Instance(20, "Target")

	steps := ResolveChain(o, []uint64{1, 20}, RootJNIGlobal, nil)

	assert := assert.New(t)
	assert.Len(steps, 3)
	assert.Equal(StepRoot, steps[0].Kind)
	assert.Equal(RootJNIGlobal, steps[0].RootKind)
	assert.Equal(uint64(1), steps[0].ObjectID)
	assert.Equal(StepTarget, steps[2].Kind)
	assert.Equal("Target", steps[2].ClassName)
	assert.Equal(uint64(20), steps[2].ObjectID)
}

func TestResolveChain_IntermediateFieldHop(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(1, "A", faketest.Field("child", 10)).
		Instance(10, "B", faketest.Field("target", 20)).
		Instance(20, "Target")

	steps := ResolveChain(o, []uint64{1, 10, 20}, RootJNIGlobal, nil)

	require := assert.New(t)
	require.Len(steps, 4)
	require.Equal(StepField, steps[1].Kind)
	require.Equal("A", steps[1].ClassName)
	require.Equal("child", steps[1].FieldName)
	require.Equal(uint64(10), steps[1].ObjectID)
}

func TestResolveChain_ArrayElementHop(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		ObjectArray(1, "com.example.Widget[]", 0, 0, 30).
		Instance(30, "Target")

	steps := ResolveChain(o, []uint64{1, 30}, RootJNIGlobal, nil)

	require := assert.New(t)
	require.Len(steps, 3)
	require.Equal(StepArrayElement, steps[1].Kind)
	require.Equal("com.example.Widget[]", steps[1].ClassName)
	require.Equal(2, steps[1].ArrayIndex)
}

func TestResolveChain_SuppressesSelfEdge(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(1, "Target")

	// A class-object-as-its-own-root case, or any chain with a duplicate
	// id, must not emit an edge step for the degenerate parent==child hop.
	steps := ResolveChain(o, []uint64{1, 1}, RootJNIGlobal, nil)

	assert.Len(t, steps, 2)
	assert.Equal(t, StepRoot, steps[0].Kind)
	assert.Equal(t, StepTarget, steps[1].Kind)
}

func TestResolveChain_UnresolvableEdgeDegradesToUnknown(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(1, "A"). // no field actually points at 20
		Instance(20, "Target")

	steps := ResolveChain(o, []uint64{1, 20}, RootJNIGlobal, nil)

	require := assert.New(t)
	require.Len(steps, 3)
	require.Equal(StepField, steps[1].Kind)
	require.Equal("?", steps[1].FieldName)
}

func TestResolveChain_VanishedParentDegradesToUnknown(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(20, "Target")

	steps := ResolveChain(o, []uint64{1, 20}, RootJNIGlobal, nil)

	require := assert.New(t)
	require.Len(steps, 3)
	require.Equal(StepField, steps[1].Kind)
	require.Equal("?", steps[1].ClassName)
	require.Equal("?", steps[1].FieldName)
}

func TestResolveChain_EmptyChainReturnsNil(t *testing.T) {
	assert.Nil(t, ResolveChain(faketest.New(), nil, RootJNIGlobal, nil))
}
