package cli

import (
	"github.com/jdziat/defensio-go"
)

type VersionCommand struct {
	*Command
}

func (c *VersionCommand) Synopsis() string {
	return "Print the version"
}

func (c *VersionCommand) Help() string {
	return "Usage: defensio version"
}

func (c *VersionCommand) Run(args []string) int {
	c.UI.Output(cliName + " " + defensio.Version + " (" + defensio.DefaultUserAgent + ")")
	return 0
}
