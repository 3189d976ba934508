package main

import (
	"os"

	"github.com/permitwise/permitwise/cmd/permitwise/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
