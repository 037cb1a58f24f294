// Command demoseed provisions a demonstration dataset into an ERP database
// and can keep it fresh on a schedule.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
