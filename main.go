// ABOUTME: Entry point for the collabfs CLI
// ABOUTME: Sign in, manage groups, or open the interactive interface

package main

import (
	"fmt"
	"os"

	"github.com/collabfs/collabfs-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
