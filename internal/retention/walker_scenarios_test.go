package retention

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurricup/leaks-collector/internal/retention/faketest"
	"github.com/hurricup/leaks-collector/pkg/config"
)

func scenarioCfg() config.WalkerConfig {
	return config.WalkerConfig{DefaultMergeDepth: 3, MaxBacktracks: 10, MaxPathsPerTarget: 100}
}

// oracleFromEdges builds a faketest.Oracle whose object graph realizes the
// same (child -> parents) edges a raw ReverseIndex would hold, so scenario
// tests can exercise the real field-name/array-index resolution machinery
// without depending on BuildReverseIndex's BFS discovery order.
func oracleFromEdges(edges map[uint64][]uint64, roots map[uint64]RootKind, classOf func(uint64) string) *faketest.Oracle {
	fields := make(map[uint64][]FieldRef)
	counters := make(map[uint64]int)
	ids := make(map[uint64]bool)
	for child, parents := range edges {
		ids[child] = true
		for _, p := range parents {
			ids[p] = true
			counters[p]++
			fields[p] = append(fields[p], faketest.Field(fmt.Sprintf("f%d", counters[p]), child))
		}
	}

	o := faketest.New()
	for id, kind := range roots {
		o.Root(id, kind)
	}
	for id := range ids {
		o.Instance(id, classOf(id), fields[id]...)
	}
	return o
}

func defaultClassOf(id uint64) string { return fmt.Sprintf("C%d", id) }

func TestScenario_SimpleChain(t *testing.T) {
	// Root R -> A.field -> B.field -> Target
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(1, "A", faketest.Field("field", 2)).
		Instance(2, "B", faketest.Field("field", 30)).
		Instance(30, "Target")

	ri := BuildReverseIndex(o, nil)
	records := WalkTarget(o, ri, 30, map[uint64]bool{30: true}, map[uint64]bool{}, scenarioCfg(), nil)
	require.Len(t, records, 1)

	steps := ResolveChain(o, FullChain(records[0], 30), RootJNIGlobal, nil)
	assert.Equal(t, "Root[JNI_GLOBAL] -> A.field -> B.field -> Target", Signature(steps))
}

func TestScenario_MergeNearRootProducesTwoPaths(t *testing.T) {
	// Root -> Shared -> {A, B}; both A and B directly reference Target.
	// Shared sits one step from its own root (< merge_depth = 3).
	o := faketest.New().
		Root(1, RootJNIGlobal).
		Instance(1, "Root1", faketest.Field("n", 50)).
		Instance(50, "Shared", faketest.Field("toA", 10), faketest.Field("toB", 20)).
		Instance(10, "A", faketest.Field("target", 100)).
		Instance(20, "B", faketest.Field("target", 100)).
		Instance(100, "Target")

	ri := BuildReverseIndex(o, nil)
	records := WalkTarget(o, ri, 100, map[uint64]bool{100: true}, map[uint64]bool{}, scenarioCfg(), nil)

	require.Len(t, records, 2)
	assert.Equal(t, []uint64{10, 50, 1}, records[0].IDsFromTarget)
	assert.Equal(t, []uint64{20, 50, 1}, records[1].IDsFromTarget)
}

func TestScenario_MergeFarFromRootSkipsRedundant(t *testing.T) {
	// Both direct parents converge on a node at steps_from_root >= 3; the
	// second walk's prefix is not strictly shorter, so it is redundant.
	edges := map[uint64][]uint64{
		100: {10, 20},
		10:  {70},
		20:  {70},
		70:  {60},
		60:  {50},
		50:  {1},
	}
	roots := map[uint64]RootKind{1: RootJNIGlobal}
	ri := buildIndex(edges, roots)
	o := oracleFromEdges(edges, roots, defaultClassOf)

	records := WalkTarget(o, ri, 100, map[uint64]bool{100: true}, map[uint64]bool{}, scenarioCfg(), nil)

	require.Len(t, records, 1)
	assert.Equal(t, []uint64{10, 70, 60, 50, 1}, records[0].IDsFromTarget)
}

func TestScenario_Displacement(t *testing.T) {
	// Second direct parent merges onto the shared far-from-root node via a
	// strictly shorter prefix and displaces the first record in place.
	edges := map[uint64][]uint64{
		100: {10, 20},
		10:  {11},
		11:  {70},
		20:  {70},
		70:  {60},
		60:  {50},
		50:  {1},
	}
	roots := map[uint64]RootKind{1: RootJNIGlobal}
	ri := buildIndex(edges, roots)
	o := oracleFromEdges(edges, roots, defaultClassOf)

	records := WalkTarget(o, ri, 100, map[uint64]bool{100: true}, map[uint64]bool{}, scenarioCfg(), nil)

	require.Len(t, records, 1)
	assert.Equal(t, []uint64{20, 70, 60, 50, 1}, records[0].IDsFromTarget, "the shorter prefix through 20 should win")
}

func TestScenario_CycleWithBoundedBacktrack(t *testing.T) {
	// Direct parent 10 dead-ends in a cycle (11 <-> 12); the walk backtracks
	// and retries 10's alternate parent, 13, which reaches the root.
	edges := map[uint64][]uint64{
		100: {10},
		10:  {11, 13},
		11:  {12},
		12:  {11},
		13:  {1},
	}
	roots := map[uint64]RootKind{1: RootJNIGlobal}
	ri := buildIndex(edges, roots)
	o := oracleFromEdges(edges, roots, defaultClassOf)

	records := WalkTarget(o, ri, 100, map[uint64]bool{100: true}, map[uint64]bool{}, scenarioCfg(), nil)

	require.Len(t, records, 1)
	assert.Equal(t, []uint64{10, 13, 1}, records[0].IDsFromTarget)
}

func TestScenario_CrossTargetFiltering(t *testing.T) {
	// T1's only route to a root passes through T2, another target: the walk
	// must refuse to step onto T2, leaving T1 dependent.
	edges := map[uint64][]uint64{
		200: {300},
		300: {1},
	}
	roots := map[uint64]RootKind{1: RootJNIGlobal}
	ri := buildIndex(edges, roots)
	o := oracleFromEdges(edges, roots, defaultClassOf)

	allTargets := map[uint64]bool{200: true, 300: true}
	records := WalkTarget(o, ri, 200, allTargets, map[uint64]bool{}, scenarioCfg(), nil)

	assert.Empty(t, records, "T1 has no independent path once its only parent is another target")
}

func TestScenario_ClaimingForcesIndependentDiscovery(t *testing.T) {
	cfg := scenarioCfg()
	edges := map[uint64][]uint64{
		600: {400},
		601: {400},
		400: {500},
		500: {510},
		510: {1},
	}
	roots := map[uint64]RootKind{1: RootJNIGlobal}
	ri := buildIndex(edges, roots)
	o := oracleFromEdges(edges, roots, defaultClassOf)

	allTargets := map[uint64]bool{600: true, 601: true}
	claimed := map[uint64]bool{}

	r1 := WalkTarget(o, ri, 600, allTargets, claimed, cfg, nil)
	require.Len(t, r1, 1)
	ClaimFromRecords(r1, claimed)

	r2 := WalkTarget(o, ri, 601, allTargets, claimed, cfg, nil)
	assert.Empty(t, r2, "T2's only route was claimed by T1 and it has no alternate")
}

func TestScenario_DisposerAnchorLiftsMergeDepth(t *testing.T) {
	cfg := scenarioCfg()
	cfg.Anchors = []config.AnchorConfig{{ClassName: "Disposer", Offset: 4}}

	// Disposer is the direct parent of Target (idx 0 from target); the
	// chain is 4 hops to root, so steps_from_root(Disposer) = 3 and
	// merge_depth = 3 + 4 = 7, not the configured default of 3.
	edges := map[uint64][]uint64{
		100: {20},
		20:  {30},
		30:  {40},
		40:  {1},
	}
	roots := map[uint64]RootKind{1: RootJNIGlobal}
	ri := buildIndex(edges, roots)
	classOf := func(id uint64) string {
		if id == 20 {
			return "Disposer"
		}
		return defaultClassOf(id)
	}
	o := oracleFromEdges(edges, roots, classOf)

	records := WalkTarget(o, ri, 100, map[uint64]bool{100: true}, map[uint64]bool{}, cfg, nil)

	require.Len(t, records, 1)
	assert.Equal(t, 7, records[0].MergeDepth)
}

func TestScenario_ArrayIndexErasureCollapsesGroup(t *testing.T) {
	o := faketest.New().
		Root(1, RootJNIGlobal).
		ObjectArray(1, "com.example.Widget[]", 10, 11).
		Instance(10, "Target").
		Instance(11, "Target")

	ri := BuildReverseIndex(o, nil)
	allTargets := map[uint64]bool{10: true, 11: true}
	claimed := map[uint64]bool{}

	var finalized []FinalizedPath
	for _, target := range []uint64{10, 11} {
		records := WalkTarget(o, ri, target, allTargets, claimed, scenarioCfg(), nil)
		ClaimFromRecords(records, claimed)
		for _, r := range records {
			steps := ResolveChain(o, FullChain(r, target), RootJNIGlobal, nil)
			finalized = append(finalized, FinalizedPath{TargetID: target, Steps: steps})
		}
	}

	groups := GroupPaths(finalized)
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []uint64{10, 11}, groups[0].TargetIDs)
	assert.Contains(t, groups[0].Signature, "[*]")
}
