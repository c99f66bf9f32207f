// Command reusectl drives the session gate and API client from a terminal:
// log in and out, inspect the stored session, create listings and replay
// gate triggers against a configured API.
//
// Configuration comes from -config (YAML), .env and REUSE_* variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: reusectl [flags] <command> [args]

commands:
  ping                               check that the API answers
  register -email E -password P      create an account
  login -email E -password P         log in and store the credential
  logout                             clear the stored credential
  status                             show the session gate's verdict
  upload FILE...                     upload images, print their URLs
  listing create [flags] [FILE...]   upload FILEs and create a listing
  simulate -path P [STEP...]         replay gate triggers (focus, recheck, path:/x)

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("reusectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts globalOptions
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	fs.BoolVar(&opts.jsonLogs, "json-logs", false, "log as JSON")
	fs.BoolVar(&opts.audit, "audit", false, "print audit events as JSON lines on stderr")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	handler, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}

	a, err := newApp(opts, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "reusectl: %v\n", err)
		return 1
	}
	defer a.close()

	if err := handler(ctx, a, rest); err != nil {
		a.fail(err)
		return 1
	}
	return 0
}
