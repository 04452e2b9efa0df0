package main

import (
	"fmt"
	"os"

	servecmder "github.com/papercomputeco/devcoach/cmd/devcoach/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()

	cmd.Use = "devcoachrelay"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .devcoach/ config directory")

	err := cmd.Execute()
	if err != nil {
		fmt.Printf("Error executing root command: %v\n", err)
		os.Exit(1)
	}
}
