package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reusemarket/gate/client"
	"github.com/reusemarket/gate/tokenstore"
)

const (
	minEmailLen    = 4
	minPasswordLen = 6
)

// Authenticator exchanges credentials for an access token. *client.Client
// satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
}

// ValidateLoginInput applies the login form check: the trimmed email must be
// longer than three characters and the password at least six.
func ValidateLoginInput(email, password string) error {
	if len(strings.TrimSpace(email)) < minEmailLen || len(password) < minPasswordLen {
		return ErrLoginInputInvalid
	}
	return nil
}

// Login validates the form input, authenticates against the API, persists the
// returned token and starts a re-check. When mounted on a public route, the
// re-check settles authenticated and the gate navigates home.
func (g *Gate) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := ValidateLoginInput(email, password); err != nil {
		g.metrics.Inc(MetricLoginFailure)
		return err
	}
	if g.auth == nil {
		return ErrClientRequired
	}

	resp, err := g.auth.Login(ctx, email, password)
	if err != nil {
		g.metrics.Inc(MetricLoginFailure)
		g.log.Warn("gate.login.fail", slog.String("error", err.Error()))
		g.emitAudit(ctx, AuditEvent{EventType: AuditLogin, Success: false, Error: err.Error()})
		return err
	}
	if resp == nil || resp.AccessToken == "" {
		g.metrics.Inc(MetricLoginFailure)
		return fmt.Errorf("%w: empty access token", client.ErrUnexpectedResponse)
	}

	if err := g.store.Save(ctx, resp.AccessToken); err != nil {
		g.metrics.Inc(MetricLoginFailure)
		g.metrics.Inc(MetricStorageFailure)
		g.log.Warn("gate.login.save.fail", slog.String("error", err.Error()))
		g.emitAudit(ctx, AuditEvent{EventType: AuditLogin, Success: false, Error: err.Error()})
		return err
	}

	g.metrics.Inc(MetricLoginSuccess)
	g.log.Info("gate.login.ok")
	g.emitAudit(ctx, AuditEvent{EventType: AuditLogin, Success: true})

	g.recheck(triggerLogin)
	return nil
}

// Logout clears the stored credential and starts a re-check, which routes a
// mounted gate on a protected screen to login. The re-check runs even when the
// store fails to clear.
func (g *Gate) Logout(ctx context.Context) error {
	err := g.store.Clear(ctx)
	if err != nil {
		g.metrics.Inc(MetricStorageFailure)
		g.log.Warn("gate.logout.clear.fail", slog.String("error", err.Error()))
	} else {
		g.metrics.Inc(MetricLogout)
		g.log.Info("gate.logout.ok")
	}
	g.emitAudit(ctx, AuditEvent{EventType: AuditLogout, Success: err == nil, Error: errString(err)})

	g.recheck(triggerLogout)
	return err
}

// Store returns the token store the gate reads.
func (g *Gate) Store() tokenstore.Store {
	return g.store
}
