package retention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurricup/leaks-collector/internal/retention/faketest"
)

func steps(rootKind RootKind, rootID uint64, fieldClass, fieldName string, targetClass string, targetID uint64) []Step {
	return []Step{
		{Kind: StepRoot, ObjectID: rootID, RootKind: rootKind},
		{Kind: StepField, ClassName: fieldClass, FieldName: fieldName, ObjectID: targetID},
		{Kind: StepTarget, ClassName: targetClass, ObjectID: targetID},
	}
}

func TestSignature_ErasesArrayIndex(t *testing.T) {
	a := []Step{
		{Kind: StepRoot, ObjectID: 1, RootKind: RootJNIGlobal},
		{Kind: StepArrayElement, ClassName: "com.example.Widget[]", ArrayIndex: 3, ObjectID: 30},
		{Kind: StepTarget, ClassName: "Target", ObjectID: 30},
	}
	b := []Step{
		{Kind: StepRoot, ObjectID: 2, RootKind: RootJNIGlobal},
		{Kind: StepArrayElement, ClassName: "com.example.Widget[]", ArrayIndex: 9, ObjectID: 31},
		{Kind: StepTarget, ClassName: "Target", ObjectID: 31},
	}

	assert.Equal(t, Signature(a), Signature(b), "same shape, different slot, same signature")
}

func TestSignature_DifferentFieldNamesDiffer(t *testing.T) {
	a := steps(RootJNIGlobal, 1, "A", "one", "Target", 30)
	b := steps(RootJNIGlobal, 1, "A", "two", "Target", 30)
	assert.NotEqual(t, Signature(a), Signature(b))
}

func TestSignature_RootKindContributesToSignature(t *testing.T) {
	a := steps(RootJNIGlobal, 1, "A", "f", "Target", 30)
	b := steps(RootThreadObject, 1, "A", "f", "Target", 30)
	assert.NotEqual(t, Signature(a), Signature(b))
}

func TestGroupPaths_GroupsBySignatureAndKeepsFirstExemplar(t *testing.T) {
	p1 := FinalizedPath{TargetID: 30, Steps: steps(RootJNIGlobal, 1, "A", "f", "Target", 30)}
	p2 := FinalizedPath{TargetID: 31, Steps: steps(RootJNIGlobal, 1, "A", "f", "Target", 31)}
	p3 := FinalizedPath{TargetID: 32, Steps: steps(RootJNIGlobal, 1, "B", "g", "Target", 32)}

	groups := GroupPaths([]FinalizedPath{p1, p2, p3})

	require.Len(t, groups, 2)
	assert.Equal(t, []uint64{30, 31}, groups[0].TargetIDs, "larger group first")
	assert.Equal(t, p1.Steps, groups[0].Exemplar)
	assert.Equal(t, []uint64{32}, groups[1].TargetIDs)
}

func TestGroupPaths_StableOrderOnTies(t *testing.T) {
	p1 := FinalizedPath{TargetID: 10, Steps: steps(RootJNIGlobal, 1, "A", "f", "Target", 10)}
	p2 := FinalizedPath{TargetID: 20, Steps: steps(RootJNIGlobal, 1, "B", "g", "Target", 20)}

	groups := GroupPaths([]FinalizedPath{p1, p2})

	require.Len(t, groups, 2)
	assert.Equal(t, p1.Steps, groups[0].Exemplar, "first-seen signature stays first on a tied count")
	assert.Equal(t, p2.Steps, groups[1].Exemplar)
}

func TestGroupPaths_EmptyInput(t *testing.T) {
	assert.Empty(t, GroupPaths(nil))
}

func TestGroupDependents_GroupsByResolvedClassName(t *testing.T) {
	o := faketest.New().
		Instance(10, "com.example.Leaky").
		Instance(11, "com.example.Leaky").
		Instance(12, "com.example.Other")

	groups := GroupDependents(o, []uint64{10, 11, 12})

	require.Len(t, groups, 2)
	assert.Equal(t, "com.example.Leaky", groups[0].ClassName)
	assert.Equal(t, []uint64{10, 11}, groups[0].TargetIDs)
	assert.Equal(t, "com.example.Other", groups[1].ClassName)
	assert.Equal(t, []uint64{12}, groups[1].TargetIDs)
}

func TestGroupDependents_ArrayTargetUsesArrayClassName(t *testing.T) {
	o := faketest.New().ObjectArray(10, "com.example.Widget[]")

	groups := GroupDependents(o, []uint64{10})

	require.Len(t, groups, 1)
	assert.Equal(t, "com.example.Widget[]", groups[0].ClassName)
}
