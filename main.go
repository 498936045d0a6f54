package main

import (
	"os"

	"github.com/spigell/applyflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
