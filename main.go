// The main package for the postal code service executable.
package main

import (
	"github.com/JakeFAU/cl-postal-codes/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
