// Command e2e exercises the vivactl binary end to end against a scripted
// mock engine. Set VIVACTL_BIN to the built binary; defaults to "vivactl"
// on PATH.
package main

import (
	"fmt"
	"os"
)

func main() {
	scenarios := []Scenario{
		ToolsListScenario(),
		RunCommandScenario(),
		ServeRoundTripScenario(),
	}

	failed := 0
	for _, s := range scenarios {
		fmt.Printf("=== %s\n", s.Name)
		if err := s.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", s.Name, err)
			failed++
			continue
		}
		fmt.Printf("ok   %s\n", s.Name)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d scenario(s) failed\n", failed)
		os.Exit(1)
	}
}
