package main

import (
	"os"

	"github.com/KDVMan/candlechart/cmd/candlechart/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
