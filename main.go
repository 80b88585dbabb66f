package main

import (
	"os"

	"github.com/fixxit/machdocs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
