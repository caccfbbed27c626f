package main

import (
	"os"

	"github.com/vantor-systems/vantor-soc/cmd/socctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
