package retention

import (
	"github.com/hurricup/leaks-collector/pkg/config"
	"github.com/hurricup/leaks-collector/pkg/utils"
)

// Result is the outcome of running retention-path discovery over one target
// set: the grouped, edge-resolved paths and the targets left dependent on
// them.
type Result struct {
	Groups     []Group
	Dependents []DependentClass
}

// Analyze walks every target in targets, in the order the caller gives
// them (spec.md §5's ordering guarantee), claiming each surviving record's far-from-root
// portion before moving to the next target so later targets are forced
// toward independent retention causes. Surviving records are resolved into
// human-readable steps and grouped by canonical signature; targets with no
// surviving record are grouped as dependents by class name.
func Analyze(oracle GraphOracle, ri *ReverseIndex, targets []uint64, cfg config.WalkerConfig, log utils.Logger) Result {
	allTargets := make(map[uint64]bool, len(targets))
	for _, t := range targets {
		allTargets[t] = true
	}
	claimed := make(map[uint64]bool)

	var finalized []FinalizedPath
	var dependentIDs []uint64

	for _, target := range targets {
		records := WalkTarget(oracle, ri, target, allTargets, claimed, cfg, log)
		if len(records) == 0 {
			dependentIDs = append(dependentIDs, target)
			continue
		}

		for _, r := range records {
			rootKind, ok := ri.RootKind(r.RootID)
			if !ok {
				// Missing GC-root mapping at output: drop the record silently,
				// per spec.md §7.
				warnf(log, "target %d: root %d has no strong-root mapping, dropping record", target, r.RootID)
				continue
			}
			chain := FullChain(r, target)
			steps := ResolveChain(oracle, chain, rootKind, log)
			finalized = append(finalized, FinalizedPath{TargetID: target, Steps: steps})
		}

		ClaimFromRecords(records, claimed)
	}

	return Result{
		Groups:     GroupPaths(finalized),
		Dependents: GroupDependents(oracle, dependentIDs),
	}
}
