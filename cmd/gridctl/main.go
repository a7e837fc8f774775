package main

import (
	"github.com/voluzi/gridpilot/cmd/gridctl/cmd"
)

func main() {
	cmd.Execute()
}
