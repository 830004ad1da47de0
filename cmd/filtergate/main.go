package main

import (
	"os"

	"github.com/triagekit/filtergate/cmd/filtergate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
