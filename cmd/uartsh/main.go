package main

import (
	"github.com/robotalks/uartcheck/pkg/cli/sh"
	"github.com/robotalks/uartcheck/pkg/harness"
)

func init() {
	harness.SetupFlags()
}

func main() {
	sh.Main()
}
