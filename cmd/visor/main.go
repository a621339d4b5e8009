package main

import (
	"github.com/vantage-health/visor/pkg/cli"
)

func main() {
	cli.Execute()
}
