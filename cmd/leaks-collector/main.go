// Command leaks-collector analyzes a binary JVM heap snapshot and explains
// why specific "leaked" objects remain reachable, by producing a small set
// of diverse, human-readable reference chains from GC roots to each one.
package main

import "github.com/hurricup/leaks-collector/cmd/leaks-collector/cmd"

func main() {
	cmd.Execute()
}
