package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	gate "github.com/reusemarket/gate"
	"github.com/reusemarket/gate/client"
	"github.com/reusemarket/gate/tokenstore"
)

type globalOptions struct {
	configPath string
	verbose    bool
	jsonLogs   bool
	audit      bool
}

// app wires config, store, client and gate for one command invocation.
type app struct {
	cfg    gate.Config
	log    *slog.Logger
	store  tokenstore.Store
	api    *client.Client
	nav    *terminalNav
	gate   *gate.Gate
	stdout io.Writer
	stderr io.Writer

	closers []func() error
}

func newApp(opts globalOptions, stdout, stderr io.Writer) (*app, error) {
	stdout, stderr = &syncWriter{w: stdout}, &syncWriter{w: stderr}

	cfg, err := gate.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	var log *slog.Logger
	if opts.jsonLogs {
		log = slog.New(slog.NewJSONHandler(stderr, hopts))
	} else {
		log = slog.New(slog.NewTextHandler(stderr, hopts))
	}

	if opts.audit {
		cfg.Audit.Enabled = true
	}

	store, closeStore, err := gate.OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		nav:     &terminalNav{out: stdout},
		stdout:  stdout,
		stderr:  stderr,
		closers: []func() error{closeStore},
	}

	a.api = client.New(cfg.API.BaseURL,
		client.WithPrefix(cfg.API.Prefix),
		client.WithTimeout(cfg.API.Timeout),
		client.WithPingTimeout(cfg.API.PingTimeout),
		client.WithLogger(log),
		client.WithTokenSource(client.TokenSourceFunc(func(ctx context.Context) (string, error) {
			return a.gate.Token(ctx)
		})),
	)

	b := gate.New().
		WithConfig(cfg).
		WithStore(store).
		WithNavigator(a.nav).
		WithAuthenticator(a.api).
		WithLogger(log)
	if opts.audit {
		b = b.WithAuditSink(gate.NewJSONWriterSink(stderr))
	}
	g, err := b.Build()
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	a.gate = g
	a.nav.g = g
	a.closers = append([]func() error{g.Close}, a.closers...)

	return a, nil
}

// mount starts the gate on path and waits for the first verdict.
func (a *app) mount(ctx context.Context, path string) error {
	a.nav.setPath(path)
	if err := a.gate.Mount(ctx, path); err != nil {
		return err
	}
	return a.settle(ctx)
}

func (a *app) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.API.Timeout+5*time.Second)
	defer cancel()
	return a.gate.Wait(ctx)
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn("reusectl.close.fail", slog.String("error", err.Error()))
		}
	}
}

func (a *app) fail(err error) {
	msg := client.UserMessage(err)
	var le *loginError
	if errors.As(err, &le) {
		msg = client.LoginMessage(le.err)
	}
	fmt.Fprintln(a.stderr, msg)
	a.log.Debug("reusectl.fail", slog.String("error", err.Error()))
}

// loginError marks a failure of the login form, which is shown with
// client.LoginMessage instead of the generic mapping.
type loginError struct{ err error }

func (e *loginError) Error() string { return e.err.Error() }
func (e *loginError) Unwrap() error { return e.err }

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

// terminalNav stands in for a screen router: it records the current path,
// prints each navigation and reports it back to the gate.
type terminalNav struct {
	out io.Writer
	g   *gate.Gate

	mu   sync.Mutex
	path string
}

func (n *terminalNav) Navigate(_ context.Context, path string) error {
	n.mu.Lock()
	from := n.path
	n.path = path
	n.mu.Unlock()

	fmt.Fprintf(n.out, "navigate %s -> %s\n", from, path)
	n.g.PathChanged(path)
	return nil
}

func (n *terminalNav) setPath(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()
}

func (n *terminalNav) current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

// syncWriter serializes writes from the gate loop and command goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
