// Command xfcctl inspects xfc configuration and serves provider frames over
// the websocket bridge.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
