package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hurricup/leaks-collector/internal/hprof"
	"github.com/hurricup/leaks-collector/internal/retention"
	"github.com/hurricup/leaks-collector/pkg/utils"
)

var (
	targetsFlag     string
	targetsFileFlag string
	formatFlag      string
)

func registerAnalyzeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&targetsFlag, "targets", "", "comma-separated leaked object ids (decimal or 0x-prefixed hex)")
	cmd.Flags().StringVar(&targetsFileFlag, "targets-file", "", "file with one leaked object id per line")
	cmd.Flags().StringVar(&formatFlag, "format", "text", "report format: text or json")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing snapshot path\n\nusage: %s <snapshot> --targets <ids>", BinName())
	}
	snapshotPath := args[0]

	if _, err := os.Stat(snapshotPath); err != nil {
		return fmt.Errorf("snapshot not found: %w", err)
	}

	var formatter retention.Formatter
	switch formatFlag {
	case "text":
		formatter = retention.TextFormatter{}
	case "json":
		formatter = retention.JSONFormatter{}
	default:
		return fmt.Errorf("invalid --format %q (valid: text, json)", formatFlag)
	}

	targets, err := parseTargets()
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets given; use --targets or --targets-file")
	}

	log := GetLogger()
	walkerCfg := GetConfig().Walker
	cacheCfg := GetConfig().Cache

	timer := utils.NewTimer("analyze", utils.WithLogger(log), utils.WithEnabled(verbose))

	log.Info("parsing snapshot %s", snapshotPath)
	parsePhase := timer.Start("parse_snapshot")
	snapshot, err := hprof.Parse(snapshotPath)
	parsePhase.Stop()
	if err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	indexPhase := timer.Start("reverse_index")
	ri, err := retention.LoadOrBuildReverseIndex(snapshot, snapshotPath, cacheCfg, log)
	indexPhase.Stop()
	if err != nil {
		return fmt.Errorf("build reverse index: %w", err)
	}

	walkPhase := timer.Start("walk_targets")
	result := retention.Analyze(snapshot, ri, targets, walkerCfg, log)
	walkPhase.Stop()

	header, err := buildHeader(snapshotPath, snapshot)
	if err != nil {
		return err
	}

	reportPhase := timer.Start("render_report")
	err = formatter.Format(cmd.OutOrStdout(), header, result)
	reportPhase.Stop()
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if verbose {
		timer.PrintSummary()
	}
	return nil
}

func buildHeader(snapshotPath string, snapshot *hprof.Snapshot) (retention.Header, error) {
	abs, err := filepath.Abs(snapshotPath)
	if err != nil {
		abs = snapshotPath
	}
	info, err := os.Stat(snapshotPath)
	if err != nil {
		return retention.Header{}, fmt.Errorf("stat snapshot: %w", err)
	}

	stats := snapshot.Stats()
	return retention.Header{
		Version:         Version,
		AbsolutePath:    abs,
		SizeBytes:       info.Size(),
		HeapTimestamp:   snapshot.Header.Timestamp,
		HprofVersion:    snapshot.Header.Format,
		PointerBits:     snapshot.Header.IDSize * 8,
		Classes:         stats.Classes,
		Instances:       stats.Instances,
		ObjectArrays:    stats.ObjectArrays,
		PrimitiveArrays: stats.PrimitiveArrays,
		GCRootCount:     stats.GCRoots,
	}, nil
}

// parseTargets merges --targets and --targets-file, in that order, per
// spec.md §6's target-id input rules. Duplicate ids collapse to their first
// occurrence, so the walker scans each target exactly once in the order
// given here.
func parseTargets() ([]uint64, error) {
	var out []uint64

	if targetsFlag != "" {
		for _, raw := range strings.Split(targetsFlag, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := parseObjectID(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid --targets entry %q: %w", raw, err)
			}
			out = append(out, id)
		}
	}

	if targetsFileFlag != "" {
		ids, err := readTargetsFile(targetsFileFlag)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}

	seen := make(map[uint64]bool, len(out))
	unique := out[:0]
	for _, id := range out {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique, nil
}

func readTargetsFile(path string) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer f.Close()

	var out []uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := parseObjectID(line)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in %s: %w", line, path, err)
		}
		out = append(out, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	return out, nil
}

func parseObjectID(raw string) (uint64, error) {
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		return strconv.ParseUint(raw[2:], 16, 64)
	}
	return strconv.ParseUint(raw, 10, 64)
}
