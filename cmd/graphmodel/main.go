// Command graphmodel is a small operational CLI for a graphmodel store:
// connection health checks and ad-hoc Cypher against the configured
// database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
