package main

import (
	"github.com/robotalks/ddsbox/pkg/cli/sh"
	env "github.com/robotalks/ddsbox/pkg/l1/env/connector"

	_ "github.com/robotalks/ddsbox/pkg/cli/cmds/dds"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
