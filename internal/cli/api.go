package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/mitchellh/cli"

	"github.com/jdziat/defensio-go"
)

// callFunc performs one API operation.
type callFunc func(ctx context.Context, client *defensio.Client, args []string, params defensio.Params) (int, defensio.Result, error)

// APICommand runs a single API operation and prints its status and result.
type APICommand struct {
	*Command

	name       string
	synopsis   string
	usage      string
	args       []string
	withParams bool
	call       callFunc

	flags clientFlags
}

func newUserCommand(base *Command) *APICommand {
	return &APICommand{
		Command:  base,
		name:     "user",
		synopsis: "Show the account behind the API key",
		usage:    "Fetches the user resource, which reports the owner URL of the key.",
		call: func(ctx context.Context, client *defensio.Client, _ []string, _ defensio.Params) (int, defensio.Result, error) {
			return client.GetUser(ctx)
		},
	}
}

func newPostDocumentCommand(base *Command) *APICommand {
	return &APICommand{
		Command:    base,
		name:       "post-document",
		synopsis:   "Submit a document for classification",
		usage:      "Submits a document. Pass its fields with -param, e.g. -param content=hello -param type=comment.",
		withParams: true,
		call: func(ctx context.Context, client *defensio.Client, _ []string, params defensio.Params) (int, defensio.Result, error) {
			return client.PostDocument(ctx, params)
		},
	}
}

func newGetDocumentCommand(base *Command) *APICommand {
	return &APICommand{
		Command:  base,
		name:     "get-document",
		synopsis: "Fetch the classification of a document",
		usage:    "Fetches the current classification of the document with the given signature.",
		args:     []string{"signature"},
		call: func(ctx context.Context, client *defensio.Client, args []string, _ defensio.Params) (int, defensio.Result, error) {
			return client.GetDocument(ctx, args[0])
		},
	}
}

func newPutDocumentCommand(base *Command) *APICommand {
	return &APICommand{
		Command:    base,
		name:       "put-document",
		synopsis:   "Correct the classification of a document",
		usage:      "Reports a misclassification, e.g. -param allow=false.",
		args:       []string{"signature"},
		withParams: true,
		call: func(ctx context.Context, client *defensio.Client, args []string, params defensio.Params) (int, defensio.Result, error) {
			return client.PutDocument(ctx, args[0], params)
		},
	}
}

func newBasicStatsCommand(base *Command) *APICommand {
	return &APICommand{
		Command:  base,
		name:     "basic-stats",
		synopsis: "Show account statistics",
		usage:    "Fetches accuracy and totals of legitimate and unwanted documents.",
		call: func(ctx context.Context, client *defensio.Client, _ []string, _ defensio.Params) (int, defensio.Result, error) {
			return client.GetBasicStats(ctx)
		},
	}
}

func newFilterCommand(base *Command) *APICommand {
	return &APICommand{
		Command:    base,
		name:       "filter",
		synopsis:   "Filter profanity from text fields",
		usage:      "Returns each -param field with profanity replaced.",
		withParams: true,
		call: func(ctx context.Context, client *defensio.Client, _ []string, params defensio.Params) (int, defensio.Result, error) {
			return client.PostProfanityFilter(ctx, params)
		},
	}
}

func (c *APICommand) Synopsis() string {
	return c.synopsis
}

func (c *APICommand) Help() string {
	usage := "Usage: defensio " + c.name + " [options]"
	for _, a := range c.args {
		usage += " <" + a + ">"
	}
	return usage + "\n\n  " + c.usage + c.Flags().Help()
}

func (c *APICommand) Flags() *FlagSet {
	f := NewFlagSet(flag.NewFlagSet(c.name, flag.ContinueOnError))
	c.flags.register(f, c.withParams)
	return f
}

func (c *APICommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if flags.NArg() != len(c.args) {
		c.UI.Error(fmt.Sprintf("%s expects %d argument(s): %s", c.name, len(c.args), strings.Join(c.args, " ")))
		return cli.RunResultHelp
	}

	client, err := c.newClient(&c.flags)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return c.report(c.call(ctx, client, flags.Args(), c.flags.params.Params()))
}

// report prints an operation outcome and returns the exit code. A result
// whose status is fail exits 1.
func (c *Command) report(status int, result defensio.Result, err error) int {
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if err := c.writeJSON(output{Status: status, Result: result}); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if result.Status() == defensio.StatusFail {
		return 1
	}
	return 0
}

// ExtendedStatsCommand prints daily statistics for a date range.
type ExtendedStatsCommand struct {
	*Command

	flagFrom string
	flagTo   string
	flags    clientFlags
}

func (c *ExtendedStatsCommand) Synopsis() string {
	return "Show daily statistics for a date range"
}

func (c *ExtendedStatsCommand) Help() string {
	return `Usage: defensio extended-stats -from YYYY-MM-DD -to YYYY-MM-DD [options]

  Fetches per-day accuracy and document counts.` + c.Flags().Help()
}

func (c *ExtendedStatsCommand) Flags() *FlagSet {
	f := NewFlagSet(flag.NewFlagSet("extended-stats", flag.ContinueOnError))
	f.StringVar(&c.flagFrom, "from", "", "(Required) First day, as YYYY-MM-DD.")
	f.StringVar(&c.flagTo, "to", "", "(Required) Last day, as YYYY-MM-DD.")
	c.flags.register(f, true)
	return f
}

func (c *ExtendedStatsCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	if c.flagFrom == "" || c.flagTo == "" {
		c.UI.Error("from and to flags are required")
		return cli.RunResultHelp
	}
	from, err := defensio.ParseDate(c.flagFrom)
	if err != nil {
		c.UI.Error(fmt.Sprintf("invalid -from: %v", err))
		return 1
	}
	to, err := defensio.ParseDate(c.flagTo)
	if err != nil {
		c.UI.Error(fmt.Sprintf("invalid -to: %v", err))
		return 1
	}
	if to.Before(from) {
		c.UI.Error("-to is before -from")
		return 1
	}

	client, err := c.newClient(&c.flags)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	params := c.flags.params.Params().Merge(defensio.ExtendedStatsRange(from, to))
	return c.report(client.GetExtendedStats(ctx, params))
}
