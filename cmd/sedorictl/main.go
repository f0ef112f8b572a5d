// Command sedorictl runs the bot's pricing logic from a terminal: shipping
// and profit estimates, weight parsing, one-off image analysis and reading
// archived analyses.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
