package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gate "github.com/reusemarket/gate"
	"github.com/reusemarket/gate/client"
	"github.com/reusemarket/gate/metrics/export/prometheus"
	"github.com/reusemarket/gate/token"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"ping":     cmdPing,
	"register": cmdRegister,
	"login":    cmdLogin,
	"logout":   cmdLogout,
	"status":   cmdStatus,
	"upload":   cmdUpload,
	"listing":  cmdListing,
	"simulate": cmdSimulate,
}

var errUsage = errors.New("bad arguments; see reusectl -h")

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func credentialFlags(fs *flag.FlagSet) (email, pass *string) {
	email = fs.String("email", "", "account email")
	pass = fs.String("password", os.Getenv("REUSE_PASSWORD"), "account password (default $REUSE_PASSWORD)")
	return email, pass
}

func cmdPing(ctx context.Context, a *app, _ []string) error {
	if !a.api.Ping(ctx) {
		return &client.NetworkError{
			URL:     a.api.URL("health"),
			BaseURL: a.api.BaseURL(),
			Prefix:  a.api.Prefix(),
			Err:     errors.New("no health endpoint answered"),
		}
	}
	a.printf("ok %s\n", a.api.BaseURL())
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "register")
	email, pass := credentialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := gate.ValidateLoginInput(*email, *pass); err != nil {
		return err
	}

	u, err := a.api.Register(ctx, strings.TrimSpace(*email), *pass)
	if err != nil {
		return err
	}
	a.printf("registered %s (%s)\n", u.Email, u.ID)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	email, pass := credentialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if err := a.mount(ctx, a.cfg.Routes.Login); err != nil {
		return err
	}
	if err := a.gate.Login(ctx, *email, *pass); err != nil {
		if errors.Is(err, gate.ErrLoginInputInvalid) {
			return errors.New("enter a valid email and a password of at least 6 characters")
		}
		return &loginError{err: err}
	}
	if err := a.settle(ctx); err != nil {
		return err
	}
	a.printf("logged in; now at %s\n", a.nav.current())
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.mount(ctx, a.cfg.Routes.Home); err != nil {
		return err
	}
	if err := a.gate.Logout(ctx); err != nil {
		return err
	}
	if err := a.settle(ctx); err != nil {
		return err
	}
	a.printf("logged out; now at %s\n", a.nav.current())
	return nil
}

func cmdStatus(ctx context.Context, a *app, _ []string) error {
	if err := a.mount(ctx, a.cfg.Routes.Home); err != nil {
		return err
	}

	st := a.gate.Snapshot()
	a.printf("status: %s\n", st.Status)
	a.printf("path:   %s\n", a.nav.current())

	tok, ok := a.gate.ValidToken(ctx)
	if !ok {
		return nil
	}
	claims, err := token.DecodePayload(tok)
	if err != nil {
		return nil
	}
	if claims.Subject != "" {
		a.printf("user:   %s\n", claims.Subject)
	}
	if exp, ok := claims.ExpiresAtTime(); ok {
		a.printf("expires: %s (in %s)\n", exp.Format(time.RFC3339), time.Until(exp).Round(time.Second))
	} else {
		a.printf("expires: never\n")
	}
	return nil
}

func cmdUpload(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	urls, err := a.api.UploadImages(ctx, args)
	if err != nil {
		return err
	}
	for _, u := range urls {
		a.printf("%s\n", u)
	}
	return nil
}

func cmdListing(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 || args[0] != "create" {
		return errUsage
	}

	fs := newFlagSet(a, "listing create")
	var in client.ListingInput
	fs.StringVar(&in.Title, "title", "", "listing title")
	fs.StringVar(&in.Description, "description", "", "listing description")
	fs.Float64Var(&in.Price, "price", 0, "price")
	fs.IntVar(&in.Stock, "stock", 1, "units in stock")
	fs.StringVar(&in.CategoryID, "category", "", "category id (24 hex characters)")
	fs.StringVar(&in.Status, "status", client.StatusActive, "active, paused or closed")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	if err := a.mount(ctx, "/listings/new"); err != nil {
		return err
	}
	if authed, _ := a.gate.Authenticated(); !authed {
		return errors.New("not logged in; run reusectl login first")
	}

	urls, err := a.api.UploadImages(ctx, fs.Args())
	if err != nil {
		return err
	}
	in.Images = urls

	l, err := a.api.CreateListing(ctx, in)
	if err != nil {
		return err
	}
	a.printf("created listing %s %q (%d images)\n", l.ID, l.Title, len(l.Images))
	return nil
}

// cmdSimulate mounts the gate and replays triggers, printing each state change
// and the resulting metrics.
func cmdSimulate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "simulate")
	path := fs.String("path", a.cfg.Routes.Home, "initial route")
	metrics := fs.Bool("metrics", true, "print Prometheus metrics at the end")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	states, unsubscribe := a.gate.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		printStates(a.stdout, states)
	}()

	if err := a.mount(ctx, *path); err != nil {
		unsubscribe()
		return err
	}
	for _, step := range fs.Args() {
		switch {
		case step == "focus":
			a.gate.Focus()
		case step == "recheck":
			a.gate.Recheck()
		case strings.HasPrefix(step, "path:"):
			p := strings.TrimPrefix(step, "path:")
			a.nav.setPath(p)
			a.gate.PathChanged(p)
		default:
			unsubscribe()
			return fmt.Errorf("%w: unknown step %q", errUsage, step)
		}
		if err := a.settle(ctx); err != nil {
			unsubscribe()
			return err
		}
	}

	unsubscribe()
	<-done

	if *metrics {
		fmt.Fprint(a.stdout, prometheus.NewPrometheusExporter(a.gate).Render())
	}
	return nil
}

func printStates(w io.Writer, states <-chan gate.State) {
	var (
		last  gate.State
		first = true
	)
	for st := range states {
		if !first && st.Phase == last.Phase && st.Status == last.Status && st.Path == last.Path {
			continue
		}
		first, last = false, st
		fmt.Fprintf(w, "state phase=%s status=%s path=%s pending=%d\n", st.Phase, st.Status, st.Path, st.Pending)
	}
}
