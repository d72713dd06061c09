// Command validate_signed_msg checks that a captured message is a SignedEvent
// from a discord adapter.
package main

import (
	"os"

	"github.com/orgmesh/signedmsg/cli/cmd"
)

func main() {
	os.Exit(cmd.Execute(cmd.NewValidateSignedMsgCommand()))
}
