// Command restcall issues a single REST call against a JSON API and prints
// the response.
package main

import (
	"os"

	"github.com/adamwoolhether/restclient/cmd/restcall/app"
)

func main() {
	if err := app.NewCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
