// Shiftcast plans quick-service restaurant shift staffing with an
// iterative reasoning loop. This binary bundles the API server and the
// operator CLI; see 'shiftcast --help' for commands.
package main

import (
	"fmt"
	"os"

	"github.com/shiftcast/shiftcast/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
