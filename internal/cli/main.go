// Package cli implements the defensio command.
package cli

import (
	"bufio"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/jdziat/defensio-go"
)

const cliName = "defensio"

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	log := newLogger(os.Stderr)

	if len(args) == 2 &&
		(args[1] == "-version" ||
			args[1] == "-v") {
		args = []string{args[0], "version"}
	}

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := &cli.CLI{
		Name:       cliName,
		Args:       args[1:],
		Version:    defensio.Version,
		Commands:   Commands(&Command{Log: log, UI: ui, Stdin: os.Stdin}),
		HelpWriter: os.Stderr,
	}

	exitCode, err := c.Run()
	if err != nil {
		log.Error("error running command", "error", err)
		return 1
	}

	return exitCode
}

// newLogger returns the root logger. Sub-loggers get their own level so
// -debug on the client logger leaves the rest of the output alone.
func newLogger(w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:              cliName,
		Output:            w,
		IndependentLevels: true,
	})
}

// Commands returns the command factories sharing base.
func Commands(base *Command) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"user": func() (cli.Command, error) {
			return newUserCommand(base), nil
		},
		"post-document": func() (cli.Command, error) {
			return newPostDocumentCommand(base), nil
		},
		"get-document": func() (cli.Command, error) {
			return newGetDocumentCommand(base), nil
		},
		"put-document": func() (cli.Command, error) {
			return newPutDocumentCommand(base), nil
		},
		"basic-stats": func() (cli.Command, error) {
			return newBasicStatsCommand(base), nil
		},
		"extended-stats": func() (cli.Command, error) {
			return &ExtendedStatsCommand{Command: base}, nil
		},
		"filter": func() (cli.Command, error) {
			return newFilterCommand(base), nil
		},
		"decode-callback": func() (cli.Command, error) {
			return &DecodeCallbackCommand{Command: base}, nil
		},
		"serve-callbacks": func() (cli.Command, error) {
			return &ServeCallbacksCommand{Command: base}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{Command: base}, nil
		},
	}
}
