// Package main is the entry point for the ANTSDR streaming daemon.
package main

import (
	"fmt"
	"os"

	"github.com/madlink306/antsdr-streamd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
