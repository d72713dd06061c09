package main

import (
	"os"

	"github.com/orgmesh/signedmsg/cli/cmd"
)

func main() {
	os.Exit(cmd.Execute(cmd.NewRootCommand()))
}
