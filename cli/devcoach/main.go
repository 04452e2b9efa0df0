package main

import (
	"fmt"
	"os"

	devcoachcmder "github.com/papercomputeco/devcoach/cmd/devcoach"
)

func main() {
	cmd := devcoachcmder.NewDevcoachCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
