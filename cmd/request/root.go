package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"

	"http-request/application/http"
	"http-request/application/http/actor/client"
	"http-request/application/util/domain"
	"http-request/config"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var (
	appName  = "request"
	appUsage = "send a single HTTP/1.1 request and print the response"
)

type contextKey int

const (
	configKey contextKey = iota
	loggerKey
)

var errNoTarget = errors.New("target is required")

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:                      appName,
		Usage:                     appUsage,
		UsageText:                 "request [options] [scheme://]host[:port][/path]",
		HideHelpCommand:           true,
		Args:                      true,
		DisableSliceFlagSeparator: true,
		Writer:                    stdout,
		ErrWriter:                 stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "load settings from a .json or .env file.",
				Aliases: []string{"c"},
				EnvVars: []string{"REQUEST_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "set the log level. Options: debug, info, warn, error.",
			},
			&cli.StringFlag{
				Name:     "method",
				Usage:    "the request method.",
				Aliases:  []string{"X"},
				Value:    "GET",
				Category: "request",
			},
			&cli.StringSliceFlag{
				Name:     "header",
				Usage:    "add a header field, as \"Name: Value\".",
				Aliases:  []string{"H"},
				Category: "request",
			},
			&cli.StringFlag{
				Name:     "data",
				Usage:    "send data as the request body.",
				Aliases:  []string{"d"},
				Category: "request",
			},
			&cli.DurationFlag{
				Name:     "timeout",
				Usage:    "limit reading the response.",
				Category: "request",
			},
			&cli.BoolFlag{
				Name:     "include",
				Usage:    "print the status line and headers before the body.",
				Aliases:  []string{"i"},
				Category: "output",
			},
		},
		Before: func(ctx *cli.Context) error {
			cfg, err := config.Load(config.LoadOptions{
				FileName:  ctx.String("config"),
				Overrides: overridesFromCLI(ctx),
			})
			if err != nil {
				return err
			}

			level, err := cfg.Level()
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(ctx.App.ErrWriter, &slog.HandlerOptions{Level: level}))

			ctx.Context = context.WithValue(ctx.Context, configKey, cfg)
			ctx.Context = context.WithValue(ctx.Context, loggerKey, logger)

			return nil
		},
		Action: send,
	}
}

func overridesFromCLI(ctx *cli.Context) map[string]any {
	overrides := make(map[string]any)
	if ctx.IsSet("log-level") {
		overrides["log_level"] = ctx.String("log-level")
	}
	if ctx.IsSet("timeout") {
		overrides["timeout.read"] = ctx.Duration("timeout")
	}
	return overrides
}

func send(ctx *cli.Context) error {
	cfg := ctx.Context.Value(configKey).(config.Config)
	logger := ctx.Context.Value(loggerKey).(*slog.Logger)

	target := ctx.Args().First()
	if target == "" {
		return errNoTarget
	}

	defaults, err := cfg.DefaultHeaders()
	if err != nil {
		return err
	}

	req, err := requestFromCLI(ctx, target, defaults)
	if err != nil {
		return err
	}

	c, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	resp, err := c.Send(ctx.Context, req)
	if err != nil {
		return err
	}

	return printResponse(ctx.App.Writer, resp, ctx.Bool("include"))
}

// requestFromCLI builds the request from flags. defaults are added after
// the flag headers unless a field of the same name was given.
func requestFromCLI(ctx *cli.Context, target string, defaults http.Headers) (*http.Request, error) {
	method := http.Method(strings.ToUpper(ctx.String("method")))
	req := http.NewRequest(method, target)

	for _, line := range ctx.StringSlice("header") {
		f, err := http.ParseField([]byte(line))
		if err != nil {
			return nil, errors.Wrap(err, "parsing header flag")
		}
		req.Header(f.Name, f.Value)
	}

	for _, f := range defaults {
		if _, ok := req.Headers.Get(f.Name); !ok {
			req.Header(f.Name, f.Value)
		}
	}

	if ctx.IsSet("data") {
		req.WithBody([]byte(ctx.String("data")))
	}

	return req, nil
}

func newClient(cfg config.Config, logger *slog.Logger) (*client.Client, error) {
	opts := cfg.ClientOptions()

	hosts, err := cfg.StaticHosts()
	if err != nil {
		return nil, err
	}

	lookuper := domain.Chain(
		domain.NewLocalhostLookuper(),
		domain.NewMapLookuper(hosts),
		domain.NewNetLookuper(net.DefaultResolver),
	)

	dialers := client.DefaultDialers(lookuper, &tls.Config{}, cfg.DialOptions())

	return client.New(dialers, logger, clock.New(), opts), nil
}

func printResponse(w io.Writer, resp *http.Response, include bool) error {
	if include {
		return http.NewResponseEncoder(w, http.DefaultEncodeOptions).Encode(resp)
	}
	_, err := w.Write(resp.Body)
	return err
}

func run(ctx context.Context, args []string) error {
	err := newApp(os.Stdout, os.Stderr).RunContext(ctx, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", appName, err.Error())
	}
	return err
}
