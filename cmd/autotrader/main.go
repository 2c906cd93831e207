package main

import (
	"os"

	"github.com/seoulquant/autotrader/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
