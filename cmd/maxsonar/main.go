package main

import (
	"github.com/robotalks/maxsonar.go/pkg/cli/sh"
	"github.com/robotalks/maxsonar.go/pkg/maxsonar"

	_ "github.com/robotalks/maxsonar.go/pkg/cli/cmds/all"
	_ "github.com/robotalks/maxsonar.go/pkg/gpio/all"
)

func init() {
	maxsonar.SetupFlags()
}

func main() {
	sh.Main()
}
