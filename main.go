package main

import (
	"os"

	"github.com/verifit/interview-runner/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
