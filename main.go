package main

import (
	"os"

	"github.com/mfellner/squeezeoff/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
