package retention

import (
	"fmt"
	"io"
	"time"

	"github.com/hurricup/leaks-collector/pkg/writer"
)

// Header carries the snapshot-level facts spec.md §6's report header names,
// gathered by the caller from the parsed snapshot before analysis runs.
type Header struct {
	Version         string
	AbsolutePath    string
	SizeBytes       int64
	HeapTimestamp   time.Time
	HprofVersion    string
	PointerBits     int
	Classes         int
	Instances       int
	ObjectArrays    int
	PrimitiveArrays int
	GCRootCount     int
}

// Formatter renders a Result to an io.Writer. spec.md scopes presentation
// as out-of-core; this is the thin default the core ships with.
type Formatter interface {
	Format(w io.Writer, header Header, result Result) error
}

// TextFormatter renders the plain `#`-commented text report spec.md §6
// defines exactly.
type TextFormatter struct{}

func (TextFormatter) Format(w io.Writer, h Header, result Result) error {
	if _, err := fmt.Fprintf(w, "# leaks-collector %s\n", h.Version); err != nil {
		return err
	}
	fmt.Fprintf(w, "# File: %s\n", h.AbsolutePath)
	fmt.Fprintf(w, "# Size: %.1f MB\n", float64(h.SizeBytes)/(1024*1024))
	fmt.Fprintf(w, "# Heap dump timestamp: %s\n", h.HeapTimestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "# Hprof version: %s\n", h.HprofVersion)
	fmt.Fprintf(w, "# JVM pointer size: %d-bit\n", h.PointerBits)
	fmt.Fprintf(w, "# Objects: %d (%d classes, %d instances, %d object arrays, %d primitive arrays)\n",
		h.Classes+h.Instances+h.ObjectArrays+h.PrimitiveArrays, h.Classes, h.Instances, h.ObjectArrays, h.PrimitiveArrays)
	fmt.Fprintf(w, "# GC roots: %d\n", h.GCRootCount)
	fmt.Fprintln(w)

	for _, g := range result.Groups {
		if _, err := fmt.Fprintf(w, "# %s\n", groupHeading(g)); err != nil {
			return err
		}
		fmt.Fprintln(w, renderSteps(g.Exemplar))
		fmt.Fprintln(w)
	}

	for _, d := range result.Dependents {
		fmt.Fprintf(w, "# %s — held by a path above\n", dependentHeading(d))
	}

	return nil
}

func groupHeading(g Group) string {
	className := ""
	if len(g.Exemplar) > 0 {
		className = g.Exemplar[len(g.Exemplar)-1].ClassName
	}
	if len(g.TargetIDs) == 1 {
		return fmt.Sprintf("%s@%d", className, g.TargetIDs[0])
	}
	return fmt.Sprintf("%s (%d instances)", className, len(g.TargetIDs))
}

func dependentHeading(d DependentClass) string {
	if len(d.TargetIDs) == 1 {
		return fmt.Sprintf("%s@%d", d.ClassName, d.TargetIDs[0])
	}
	return fmt.Sprintf("%s (%d instances)", d.ClassName, len(d.TargetIDs))
}

func renderSteps(steps []Step) string {
	out := ""
	for i, s := range steps {
		if i > 0 {
			out += " -> "
		}
		switch s.Kind {
		case StepRoot:
			out += fmt.Sprintf("Root[%s, %d]", s.RootKind, s.ObjectID)
		case StepField:
			out += fmt.Sprintf("%s.%s", s.ClassName, s.FieldName)
		case StepArrayElement:
			if s.ArrayIndex < 0 {
				out += fmt.Sprintf("%s[?]", s.ClassName)
			} else {
				out += fmt.Sprintf("%s[%d]", s.ClassName, s.ArrayIndex)
			}
		case StepTarget:
			out += fmt.Sprintf("%s@%d", s.ClassName, s.ObjectID)
		}
	}
	return out
}

// jsonReport is the machine-readable shape --format json emits; it carries
// the same grouped/dependent-target data the text report does, without
// changing path-discovery semantics.
type jsonReport struct {
	Header     Header          `json:"header"`
	Groups     []jsonGroup     `json:"groups"`
	Dependents []jsonDependent `json:"dependents"`
}

type jsonGroup struct {
	Signature string   `json:"signature"`
	Path      string   `json:"path"`
	TargetIDs []uint64 `json:"target_ids"`
}

type jsonDependent struct {
	ClassName string   `json:"class_name"`
	TargetIDs []uint64 `json:"target_ids"`
}

// JSONFormatter renders the same report data as a JSON document, for
// downstream tooling, using the teacher's generic writer.JSONWriter[T].
type JSONFormatter struct{}

func (JSONFormatter) Format(w io.Writer, h Header, result Result) error {
	report := jsonReport{Header: h}
	for _, g := range result.Groups {
		report.Groups = append(report.Groups, jsonGroup{
			Signature: g.Signature,
			Path:      renderSteps(g.Exemplar),
			TargetIDs: g.TargetIDs,
		})
	}
	for _, d := range result.Dependents {
		report.Dependents = append(report.Dependents, jsonDependent{
			ClassName: d.ClassName,
			TargetIDs: d.TargetIDs,
		})
	}

	jw := writer.NewPrettyJSONWriter[jsonReport]()
	return jw.Write(report, w)
}
