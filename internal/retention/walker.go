package retention

import (
	"github.com/hurricup/leaks-collector/pkg/config"
	"github.com/hurricup/leaks-collector/pkg/utils"
)

// PathRecord is one surviving retention chain for a target: the ids from
// the target's direct parent up to and including the root, in walk order.
type PathRecord struct {
	IDsFromTarget []uint64
	RootID        uint64
	MergeDepth    int
}

type ownerEntry struct {
	pathIndex       int
	stepsFromTarget int // 1-based position within the owning record
}

type frame struct {
	id     uint64
	cursor int
}

type walkOutcome int

const (
	outcomeFoundRoot walkOutcome = iota
	outcomeMerged
	outcomeDeadEnd
)

// TargetState accumulates one target's PathRecords and NodeOwner table
// across its direct-parent walks.
type TargetState struct {
	records []PathRecord
	owner   map[uint64]ownerEntry
}

func newTargetState() *TargetState {
	return &TargetState{owner: make(map[uint64]ownerEntry)}
}

// WalkTarget runs the greedy per-direct-parent walk for one target and
// returns its surviving PathRecords. claimed is shared across targets and
// is read (never written) here; the caller claims nodes afterward via
// ClaimFromRecords.
func WalkTarget(oracle GraphOracle, ri *ReverseIndex, target uint64, allTargets map[uint64]bool, claimed map[uint64]bool, cfg config.WalkerConfig, log utils.Logger) []PathRecord {
	state := newTargetState()

	for _, p0 := range ri.Parents(target) {
		if len(state.records) >= cfg.MaxPathsPerTarget {
			debugf(log, "target %d: max paths per target (%d) reached, stopping", target, cfg.MaxPathsPerTarget)
			break
		}
		if allTargets[p0] || claimed[p0] {
			continue
		}

		chain, outcome, shared := walkOne(oracle, ri, target, p0, state, allTargets, claimed, cfg.MaxBacktracks)

		switch outcome {
		case outcomeFoundRoot:
			registerFoundRoot(state, chain, oracle, cfg)
		case outcomeMerged:
			handleMerge(state, chain, shared, cfg, log)
		case outcomeDeadEnd:
			// nothing survives from this direct parent
		}
	}

	if len(state.records) == 0 {
		debugf(log, "target %d: no surviving path, reported as dependent", target)
	}
	return state.records
}

// walkOne performs one bounded backward walk starting at direct parent p0.
// It returns the accumulated id chain (from p0 up to the terminal node,
// inclusive) and how the walk ended.
func walkOne(oracle GraphOracle, ri *ReverseIndex, target, p0 uint64, state *TargetState, allTargets map[uint64]bool, claimed map[uint64]bool, maxBacktracks int) ([]uint64, walkOutcome, uint64) {
	visited := map[uint64]bool{target: true, p0: true}
	frames := []frame{{id: p0, cursor: 0}}

	backtracks := 0

	chainOf := func() []uint64 {
		chain := make([]uint64, len(frames))
		for i, f := range frames {
			chain[i] = f.id
		}
		return chain
	}

	for {
		if len(frames) == 0 {
			return nil, outcomeDeadEnd, 0
		}
		top := &frames[len(frames)-1]
		c := top.id

		if _, isRoot := ri.RootKind(c); isRoot {
			return chainOf(), outcomeFoundRoot, c
		}
		if _, owned := state.owner[c]; owned {
			return chainOf(), outcomeMerged, c
		}
		if claimed[c] {
			if backtrackOnce(&frames, &backtracks, maxBacktracks) {
				continue
			}
			return nil, outcomeDeadEnd, 0
		}

		parents := ri.Parents(c)
		q, nextCursor, found := firstUsableParent(parents, top.cursor, visited, allTargets, claimed)
		if !found {
			if backtrackOnce(&frames, &backtracks, maxBacktracks) {
				continue
			}
			return nil, outcomeDeadEnd, 0
		}

		top.cursor = nextCursor
		visited[q] = true
		frames = append(frames, frame{id: q, cursor: 0})
	}
}

func firstUsableParent(parents []uint64, from int, visited, allTargets, claimed map[uint64]bool) (uint64, int, bool) {
	for i := from; i < len(parents); i++ {
		q := parents[i]
		if visited[q] || allTargets[q] || claimed[q] {
			continue
		}
		return q, i + 1, true
	}
	return 0, len(parents), false
}

func backtrackOnce(frames *[]frame, backtracks *int, maxBacktracks int) bool {
	if len(*frames) <= 1 || *backtracks >= maxBacktracks {
		return false
	}
	*backtracks++
	*frames = (*frames)[:len(*frames)-1]
	return true
}

// registerFoundRoot appends a new PathRecord for a walk that reached a
// strong root outright.
func registerFoundRoot(state *TargetState, chain []uint64, oracle GraphOracle, cfg config.WalkerConfig) {
	mergeDepth := computeMergeDepth(chain, oracle, cfg)
	idx := len(state.records)
	state.records = append(state.records, PathRecord{
		IDsFromTarget: chain,
		RootID:        chain[len(chain)-1],
		MergeDepth:    mergeDepth,
	})
	for i, id := range chain {
		state.owner[id] = ownerEntry{pathIndex: idx, stepsFromTarget: i + 1}
	}
}

// handleMerge resolves a walk that ran into a node already owned by another
// record, per the near-root / displacement / skip decision table.
func handleMerge(state *TargetState, newPrefix []uint64, shared uint64, cfg config.WalkerConfig, log utils.Logger) {
	entry, ok := state.owner[shared]
	if !ok {
		return
	}
	r := state.records[entry.pathIndex]
	e := entry.stepsFromTarget
	if e > len(r.IDsFromTarget) {
		debugf(log, "merge at %d: stale owner entry (steps=%d, len=%d), skipped", shared, e, len(r.IDsFromTarget))
		return // stale owner entry
	}
	existingStepsFromRoot := len(r.IDsFromTarget) - e

	switch {
	case existingStepsFromRoot < r.MergeDepth:
		newIDs := make([]uint64, 0, len(newPrefix)+len(r.IDsFromTarget)-e)
		newIDs = append(newIDs, newPrefix...)
		newIDs = append(newIDs, r.IDsFromTarget[e:]...)
		idx := len(state.records)
		state.records = append(state.records, PathRecord{
			IDsFromTarget: newIDs,
			RootID:        r.RootID,
			MergeDepth:    r.MergeDepth,
		})
		for i, id := range newPrefix {
			state.owner[id] = ownerEntry{pathIndex: idx, stepsFromTarget: i + 1}
		}

	case len(newPrefix) < e:
		debugf(log, "displacing path %d at node %d: prefix %d < %d", entry.pathIndex, shared, len(newPrefix), e)
		for _, id := range r.IDsFromTarget[:e] {
			delete(state.owner, id)
		}
		suffix := r.IDsFromTarget[e:]
		newIDs := make([]uint64, 0, len(newPrefix)+len(suffix))
		newIDs = append(newIDs, newPrefix...)
		newIDs = append(newIDs, suffix...)
		state.records[entry.pathIndex] = PathRecord{
			IDsFromTarget: newIDs,
			RootID:        r.RootID,
			MergeDepth:    r.MergeDepth,
		}
		for i, id := range newPrefix {
			state.owner[id] = ownerEntry{pathIndex: entry.pathIndex, stepsFromTarget: i + 1}
		}
		for k, id := range suffix {
			state.owner[id] = ownerEntry{pathIndex: entry.pathIndex, stepsFromTarget: len(newPrefix) + k + 1}
		}

	default:
		// far from root, not shorter: redundant, skip.
	}
}

// computeMergeDepth searches the chain, from the target side toward the
// root, for the first class-name anchor match; the closest anchor to the
// target wins. Absent a match, the configured default applies.
func computeMergeDepth(chain []uint64, oracle GraphOracle, cfg config.WalkerConfig) int {
	for idx, id := range chain {
		node, ok := oracle.Resolve(id)
		if !ok {
			continue
		}
		name := node.ClassName
		if name == "" {
			name = node.ArrayClassName
		}
		for _, anchor := range cfg.Anchors {
			if anchor.ClassName == name {
				stepsFromRoot := (len(chain) - 1) - idx
				return stepsFromRoot + anchor.Offset
			}
		}
	}
	return cfg.DefaultMergeDepth
}

// ClaimFromRecords marks the target-side portion of each surviving record
// (everything at or beyond its merge depth) as claimed, so later targets'
// walks are forced toward independent causes.
func ClaimFromRecords(records []PathRecord, claimed map[uint64]bool) {
	for _, r := range records {
		stepsExcludingRoot := len(r.IDsFromTarget) - 1
		count := stepsExcludingRoot - r.MergeDepth + 1
		if count < 0 {
			count = 0
		}
		if count > stepsExcludingRoot {
			count = stepsExcludingRoot
		}
		for _, id := range r.IDsFromTarget[:count] {
			claimed[id] = true
		}
	}
}
