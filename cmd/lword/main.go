// Command lword is the CLI and REPL for the L scripting language.
package main

import (
	"os"

	"github.com/wordscript/lword/cmd/lword/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
