package main

import (
	"os"

	"github.com/jdziat/defensio-go/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args))
}
