// The main package for the journaliser executable.
package main

import (
	"github.com/faarchive/journaliser/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
