// Command counterd serves a lazily connected counter over HTTP and offers
// one-shot init, get and set commands against the configured store.
package main

import (
	"github.com/nimburion/lazycounter/pkg/cli"
)

func main() {
	cli.Execute(cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:        "counterd",
		Description: "Lazy connecting counter service",
		EnvPrefix:   "APP",
	}))
}
