// Command billingd serves the subscription billing API and reconciles
// payment processor webhooks.
package main

import (
	"fmt"
	"os"
)

// Set at build time with -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
