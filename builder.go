package gate

import (
	"log/slog"
	"time"

	"github.com/reusemarket/gate/tokenstore"
)

// Builder assembles a [Gate]. Builders are single use.
type Builder struct {
	config Config
	store  tokenstore.Store
	nav    Navigator
	auth   Authenticator
	logger *slog.Logger
	sink   AuditSink
	now    func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the token store. Required.
func (b *Builder) WithStore(store tokenstore.Store) *Builder {
	b.store = store
	return b
}

// WithNavigator sets the navigation collaborator. Required.
func (b *Builder) WithNavigator(nav Navigator) *Builder {
	b.nav = nav
	return b
}

// WithAuthenticator sets the API used by [Gate.Login].
func (b *Builder) WithAuthenticator(auth Authenticator) *Builder {
	b.auth = auth
	return b
}

// WithLogger sets the structured logger. Logs are discarded by default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink. It is used only when Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithClock overrides the time source used for expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithStrictOrdering selects [OrderingStrict].
func (b *Builder) WithStrictOrdering() *Builder {
	b.config.Ordering = OrderingStrict
	return b
}

// Build validates the configuration and starts the gate's event loop.
// The returned gate must be closed with [Gate.Close].
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, ErrStoreRequired
	}
	if b.nav == nil {
		return nil, ErrNavigatorRequired
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	b.built = true

	return newGate(cfg, b.store, b.nav, b.auth, logger, b.sink, now), nil
}
