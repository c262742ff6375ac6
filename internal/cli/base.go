package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/jdziat/defensio-go"
	"github.com/jdziat/defensio-go/internal/cli/config"
)

// Command holds what every subcommand shares.
type Command struct {
	Log   hclog.Logger
	UI    cli.Ui
	Stdin io.Reader
}

// FlagSet is a flag.FlagSet that renders its own help text.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f, silencing the default usage output.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	f.SetOutput(io.Discard)
	f.Usage = func() {}
	return &FlagSet{FlagSet: f}
}

// Help returns the options section of a command's help.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s\n      %s\n", fl.Name, fl.Usage)
	})
	return strings.TrimRight(b.String(), "\n")
}

// paramList collects repeated -param key=value flags.
type paramList struct {
	keys   []string
	values map[string]string
}

func (p *paramList) String() string {
	pairs := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		pairs = append(pairs, k+"="+p.values[k])
	}
	return strings.Join(pairs, ",")
}

func (p *paramList) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("invalid parameter %q, want key=value", s)
	}
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, seen := p.values[key]; !seen {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return nil
}

// Params returns the collected parameters with literal keys, or nil when none
// were given. A repeated key keeps the last value.
func (p *paramList) Params() defensio.Params {
	if len(p.keys) == 0 {
		return nil
	}
	params := make(defensio.Params, len(p.keys))
	for _, k := range p.keys {
		params[defensio.Literal(k)] = p.values[k]
	}
	return params
}

// clientFlags are the connection flags shared by the API commands.
type clientFlags struct {
	config   string
	key      string
	host     string
	format   string
	clientID string
	debug    bool
	params   paramList
}

func (f *clientFlags) register(fs *FlagSet, withParams bool) {
	fs.StringVar(&f.config, "config", "", "Path to a configuration file. Defaults to the nearest .defensio.yaml.")
	fs.StringVar(&f.key, "key", "", "API key. Overrides DEFENSIO_KEY and the configuration file.")
	fs.StringVar(&f.host, "host", "", "API base URL.")
	fs.StringVar(&f.format, "format", "", "Wire format: json or yaml.")
	fs.StringVar(&f.clientID, "client", "", "Client identifier sent with documents.")
	fs.BoolVar(&f.debug, "debug", false, "Log every request.")
	if withParams {
		fs.Var(&f.params, "param", "Request parameter as key=value. May be repeated.")
	}
}

// load reads the configuration and applies flag overrides.
func (f *clientFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if f.key != "" {
		cfg.APIKey = f.key
	}
	if f.host != "" {
		cfg.Host = f.host
	}
	if f.format != "" {
		cfg.Format = f.format
	}
	if f.clientID != "" {
		cfg.ClientID = f.clientID
	}
	if f.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

var errNoAPIKey = errors.New("an API key is required: use -key, DEFENSIO_KEY or api_key in .defensio.yaml")

// newClient builds a client from the configuration and flags.
func (c *Command) newClient(f *clientFlags) (*defensio.Client, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, errNoAPIKey
	}

	log := c.Log.Named("client")
	if cfg.Debug {
		log.SetLevel(hclog.Debug)
	}
	if cfg.Path != "" {
		log.Debug("loaded configuration", "path", cfg.Path)
	}

	format, err := defensio.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	opts := []defensio.ConfigOption{
		defensio.WithFormat(format),
		defensio.WithLogger(log),
	}
	if cfg.Host != "" {
		opts = append(opts, defensio.WithBaseURL(cfg.Host))
	}
	if cfg.ClientID != "" {
		opts = append(opts, defensio.WithClientID(cfg.ClientID))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, defensio.WithTimeout(cfg.Timeout))
	}

	return defensio.New(cfg.APIKey, opts...)
}

// output is what API commands print.
type output struct {
	Status int             `json:"status"`
	Result defensio.Result `json:"result"`
}

func (c *Command) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	c.UI.Output(string(data))
	return nil
}
