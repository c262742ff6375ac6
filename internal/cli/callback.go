package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/jdziat/defensio-go"
	"github.com/jdziat/defensio-go/internal/cli/config"
)

// DecodeCallbackCommand decodes a saved callback body.
type DecodeCallbackCommand struct {
	*Command

	flagFormat string
}

func (c *DecodeCallbackCommand) Synopsis() string {
	return "Decode an asynchronous result body"
}

func (c *DecodeCallbackCommand) Help() string {
	return `Usage: defensio decode-callback [options] [file]

  Decodes a body Defensio posted to a callback URL and prints the result.
  Reads standard input when file is omitted or "-".` + c.Flags().Help()
}

func (c *DecodeCallbackCommand) Flags() *FlagSet {
	f := NewFlagSet(flag.NewFlagSet("decode-callback", flag.ContinueOnError))
	f.StringVar(&c.flagFormat, "format", string(defensio.DefaultFormat), "Body format: json or yaml.")
	return f
}

func (c *DecodeCallbackCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if flags.NArg() > 1 {
		c.UI.Error("decode-callback takes at most one file")
		return cli.RunResultHelp
	}

	format, err := defensio.ParseFormat(c.flagFormat)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	var in io.Reader = c.Stdin
	if name := flags.Arg(0); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error opening callback body: %v", err))
			return 1
		}
		defer f.Close()
		in = f
	}

	result, err := defensio.DecodeCallback(in, defensio.WithCallbackFormat(format))
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if err := c.writeJSON(result); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}


// ServeCallbacksCommand runs an HTTP receiver for asynchronous results.
type ServeCallbacksCommand struct {
	*Command

	flagConfig   string
	flagAddr     string
	flagPath     string
	flagFormat   string
	flagMaxBytes int64
}

func (c *ServeCallbacksCommand) Synopsis() string {
	return "Receive asynchronous results over HTTP"
}

func (c *ServeCallbacksCommand) Help() string {
	return `Usage: defensio serve-callbacks [options]

  Listens for results Defensio posts to async-callback URLs and prints each
  one as a JSON line. Stops on interrupt.` + c.Flags().Help()
}

func (c *ServeCallbacksCommand) Flags() *FlagSet {
	f := NewFlagSet(flag.NewFlagSet("serve-callbacks", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "Path to a configuration file. Defaults to the nearest .defensio.yaml.")
	f.StringVar(&c.flagAddr, "addr", "", "Listen address. Defaults to callbacks.addr.")
	f.StringVar(&c.flagPath, "path", "", "Callback path. Defaults to callbacks.path.")
	f.StringVar(&c.flagFormat, "format", "", "Body format: json or yaml.")
	f.Int64Var(&c.flagMaxBytes, "max-bytes", 0, "Largest accepted body. Defaults to callbacks.max_bytes.")
	return f
}

func (c *ServeCallbacksCommand) Run(args []string) int {
	logger, ui := c.Log.Named("callbacks"), &cli.ConcurrentUi{Ui: c.UI}

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := config.Load(c.flagConfig)
	if err != nil {
		ui.Error(fmt.Sprintf("error loading configuration: %v", err))
		return 1
	}
	c.applyFlags(cfg)

	format, err := defensio.ParseFormat(cfg.Format)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	handler := defensio.CallbackHandler(printResult(ui),
		defensio.WithCallbackFormat(format),
		defensio.WithCallbackLogger(logger),
		defensio.WithCallbackMaxBytes(cfg.Callbacks.MaxBytes),
	)

	ln, err := net.Listen("tcp", cfg.Callbacks.Addr)
	if err != nil {
		ui.Error(fmt.Sprintf("error listening on %s: %v", cfg.Callbacks.Addr, err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("listening", "addr", ln.Addr().String(), "path", cfg.Callbacks.Path, "format", format)
	if err := serve(ctx, ln, newCallbackRouter(logger, cfg.Callbacks.Path, handler)); err != nil {
		ui.Error(fmt.Sprintf("error serving callbacks: %v", err))
		return 1
	}
	logger.Info("stopped")
	return 0
}

func (c *ServeCallbacksCommand) applyFlags(cfg *config.Config) {
	if c.flagAddr != "" {
		cfg.Callbacks.Addr = c.flagAddr
	}
	if c.flagPath != "" {
		cfg.Callbacks.Path = c.flagPath
	}
	if c.flagFormat != "" {
		cfg.Format = c.flagFormat
	}
	if c.flagMaxBytes > 0 {
		cfg.Callbacks.MaxBytes = c.flagMaxBytes
	}
}

// printResult writes each accepted result to ui as one JSON line.
func printResult(ui cli.Ui) defensio.CallbackFunc {
	return func(_ context.Context, result defensio.Result) error {
		line, err := json.Marshal(result)
		if err != nil {
			return err
		}
		ui.Output(string(line))
		return nil
	}
}

// newCallbackRouter mounts the callback handler at path with request IDs,
// access logging and panic recovery.
func newCallbackRouter(logger hclog.Logger, path string, callbacks http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)

	r.Handle(path, callbacks)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

func accessLog(logger hclog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// serve runs handler on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
