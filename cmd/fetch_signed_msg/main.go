// Command fetch_signed_msg waits for one message on the domain event subject
// and writes it to a file.
package main

import (
	"os"

	"github.com/orgmesh/signedmsg/cli/cmd"
)

func main() {
	os.Exit(cmd.Execute(cmd.NewFetchSignedMsgCommand()))
}
