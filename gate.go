package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/reusemarket/gate/internal/audit"
	"github.com/reusemarket/gate/token"
	"github.com/reusemarket/gate/tokenstore"
)

// Navigator performs route changes requested by the gate.
//
// Navigate is called on the gate's event loop. It may call back into the gate
// (for example PathChanged) but must not block waiting for the gate to go idle.
type Navigator interface {
	Navigate(ctx context.Context, path string) error
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(ctx context.Context, path string) error

// Navigate calls f(ctx, path).
func (f NavigatorFunc) Navigate(ctx context.Context, path string) error {
	return f(ctx, path)
}

type trigger string

const (
	triggerMount  trigger = "mount"
	triggerFocus  trigger = "focus"
	triggerPath   trigger = "path_change"
	triggerLogin  trigger = "login"
	triggerLogout trigger = "logout"
)

type checkRun struct {
	id      string
	gen     uint64
	epoch   uint64
	trigger trigger
	ctx     context.Context
}

// Gate decides, for a client application, whether the current screen may be
// shown and issues at most one redirect at a time.
//
// All mutable state is owned by a single event-loop goroutine. Exported methods
// enqueue events and return immediately; use [Gate.Wait] to observe the effect.
// Gate is safe for concurrent use.
type Gate struct {
	cfg     Config
	store   tokenstore.Store
	nav     Navigator
	auth    Authenticator
	log     *slog.Logger
	metrics *Metrics
	audit   *audit.Dispatcher
	now     func() time.Time

	// event queue
	qmu     sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// loop-owned
	phase       Phase
	status      Status
	path        string
	mounted     bool
	mountCtx    context.Context
	mountCancel context.CancelFunc
	epoch       uint64
	lastGen     uint64
	appliedGen  uint64
	pending     int
	guard       bool
	waiters     []chan struct{}

	snap       atomic.Pointer[State]
	subsMu     sync.Mutex
	subs       map[uint64]chan State
	subSeq     uint64
	subsClosed bool
}

func newGate(cfg Config, store tokenstore.Store, nav Navigator, auth Authenticator, logger *slog.Logger, sink AuditSink, now func() time.Time) *Gate {
	g := &Gate{
		cfg:     cfg,
		store:   store,
		nav:     nav,
		auth:    auth,
		log:     logger,
		metrics: NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink),
		now:     now,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		subs:    make(map[uint64]chan State),
	}
	g.snap.Store(&State{})
	go g.run()
	return g
}

/*
====================================
EVENT LOOP
====================================
*/

func (g *Gate) run() {
	defer close(g.stopped)

	for {
		fn, ok := g.next()
		if ok {
			fn()
			continue
		}

		g.notifyIdle()

		select {
		case <-g.wake:
		case <-g.done:
			g.shutdown()
			return
		}
	}
}

func (g *Gate) next() (func(), bool) {
	g.qmu.Lock()
	defer g.qmu.Unlock()

	if len(g.queue) == 0 {
		return nil, false
	}
	fn := g.queue[0]
	g.queue[0] = nil
	g.queue = g.queue[1:]
	return fn, true
}

// post appends fn to the event queue. It never blocks, so it is safe to call
// from the loop itself, from worker goroutines and from Navigate.
func (g *Gate) post(fn func()) bool {
	g.qmu.Lock()
	if g.closed {
		g.qmu.Unlock()
		return false
	}
	g.queue = append(g.queue, fn)
	g.qmu.Unlock()

	select {
	case g.wake <- struct{}{}:
	default:
	}
	return true
}

func (g *Gate) notifyIdle() {
	if g.pending > 0 || len(g.waiters) == 0 {
		return
	}
	for _, ch := range g.waiters {
		close(ch)
	}
	g.waiters = nil
}

func (g *Gate) shutdown() {
	if g.mountCancel != nil {
		g.mountCancel()
	}
	g.mounted = false
	g.epoch++
	g.phase = PhaseBooting
	g.publish()

	g.subsMu.Lock()
	g.subsClosed = true
	for id, ch := range g.subs {
		close(ch)
		delete(g.subs, id)
	}
	g.subsMu.Unlock()
}

/*
====================================
TRIGGERS
====================================
*/

// Mount attaches the gate to a screen tree at path and starts the initial
// validity check. ctx bounds the mount: when it is cancelled, completions of
// checks started under it are discarded. Mounting an already mounted gate is
// treated as a route change to path.
func (g *Gate) Mount(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ok := g.post(func() {
		if g.mounted {
			g.changePath(path)
			return
		}

		g.mountCtx, g.mountCancel = context.WithCancel(ctx)
		g.mounted = true
		g.path = path
		g.status = StatusUnknown
		g.phase = PhaseChecking
		g.appliedGen = g.lastGen

		g.log.Info("gate.mount", slog.String("path", path), slog.Uint64("epoch", g.epoch))
		g.startCheck(triggerMount, g.cfg.Dev.ClearOnBoot)
	})
	if !ok {
		return ErrGateClosed
	}
	return nil
}

// Focus reports that the mounted screen regained focus and starts a re-check.
func (g *Gate) Focus() {
	g.post(func() {
		if !g.mounted {
			return
		}
		g.startCheck(triggerFocus, false)
	})
}

// PathChanged reports the current route. The redirect policy is evaluated
// against the last settled status, then a re-check starts.
func (g *Gate) PathChanged(path string) {
	g.post(func() { g.changePath(path) })
}

func (g *Gate) changePath(path string) {
	if g.path == path {
		return
	}
	g.path = path
	g.publish()
	if !g.mounted {
		return
	}
	// Judged before the re-check so navigation is not held behind the store
	// read; a check still in flight may later correct it. Unknown never
	// redirects.
	g.evaluateRedirect(triggerPath)
	g.startCheck(triggerPath, false)
}

// Recheck starts a validity check without a screen trigger. Login and Logout
// use it after changing the stored credential.
func (g *Gate) Recheck() {
	g.recheck(triggerFocus)
}

func (g *Gate) recheck(t trigger) {
	g.post(func() {
		if !g.mounted {
			return
		}
		g.startCheck(t, false)
	})
}

// Unmount detaches the gate. Completions of checks still in flight are ignored.
func (g *Gate) Unmount() {
	g.post(func() {
		if !g.mounted {
			return
		}
		g.mountCancel()
		g.mounted = false
		g.epoch++
		g.phase = PhaseBooting
		g.status = StatusUnknown
		g.log.Info("gate.unmount", slog.String("path", g.path))
		g.publish()
	})
}

// Close stops the event loop and the audit dispatcher. Close is idempotent.
func (g *Gate) Close() error {
	g.once.Do(func() {
		g.qmu.Lock()
		g.closed = true
		g.qmu.Unlock()
		close(g.done)
		<-g.stopped
		g.audit.Close()
	})
	return nil
}

// Wait blocks until the event queue is empty and no check is in flight.
func (g *Gate) Wait(ctx context.Context) error {
	ch := make(chan struct{})
	if !g.post(func() { g.waiters = append(g.waiters, ch) }) {
		return ErrGateClosed
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-g.stopped:
		return ErrGateClosed
	}
}

/*
====================================
CHECKS
====================================
*/

func (g *Gate) startCheck(t trigger, clearFirst bool) {
	g.lastGen++
	run := checkRun{
		id:      uuid.NewString(),
		gen:     g.lastGen,
		epoch:   g.epoch,
		trigger: t,
		ctx:     g.mountCtx,
	}
	g.pending++
	g.phase = PhaseChecking
	g.metrics.Inc(MetricCheckStarted)
	g.publish()

	g.log.Debug("gate.check.start",
		slog.String("check_id", run.id),
		slog.String("trigger", string(t)),
		slog.Uint64("gen", run.gen),
	)

	go func() {
		start := g.now()
		if clearFirst {
			if err := g.store.Clear(run.ctx); err != nil {
				g.metrics.Inc(MetricStorageFailure)
				g.log.Warn("gate.clear_on_boot.fail", slog.String("error", err.Error()))
			}
		}
		_, ok := g.validToken(run.ctx, run.id)
		g.metrics.Observe(MetricCheckLatency, g.now().Sub(start))

		g.post(func() { g.completeCheck(run, ok) })
	}()
}

func (g *Gate) completeCheck(run checkRun, authed bool) {
	g.pending--

	if run.epoch != g.epoch || run.ctx.Err() != nil {
		g.discard(run, "stale_mount")
		return
	}
	if g.cfg.Ordering == OrderingStrict && run.gen < g.appliedGen {
		g.discard(run, "superseded")
		return
	}

	if run.gen > g.appliedGen {
		g.appliedGen = run.gen
	}
	g.phase = g.settledPhase()
	if authed {
		g.status = StatusAuthenticated
		g.metrics.Inc(MetricSettledAuthenticated)
	} else {
		g.status = StatusUnauthenticated
		g.metrics.Inc(MetricSettledUnauthenticated)
	}
	g.metrics.Inc(MetricCheckApplied)
	g.publish()

	g.log.Debug("gate.check.ok",
		slog.String("check_id", run.id),
		slog.String("status", g.status.String()),
		slog.String("path", g.path),
	)

	g.evaluateRedirect(run.trigger)
}

func (g *Gate) discard(run checkRun, reason string) {
	g.metrics.Inc(MetricCheckDiscarded)
	if g.mounted && g.status != StatusUnknown {
		g.phase = g.settledPhase()
	}
	g.log.Debug("gate.check.discard",
		slog.String("check_id", run.id),
		slog.String("reason", reason),
	)
	g.publish()
}

// settledPhase keeps Checking while any check is still in flight.
func (g *Gate) settledPhase() Phase {
	if g.pending > 0 {
		return PhaseChecking
	}
	return PhaseSettled
}

// ValidToken returns the stored credential when it is present and not expired.
// An expired credential is removed from the store. Storage and decode failures
// yield ("", false) and are logged.
func (g *Gate) ValidToken(ctx context.Context) (string, bool) {
	return g.validToken(ctx, "")
}

// Token implements client.TokenSource: it yields the valid credential or "".
func (g *Gate) Token(ctx context.Context) (string, error) {
	tok, _ := g.validToken(ctx, "")
	return tok, nil
}

func (g *Gate) validToken(ctx context.Context, checkID string) (string, bool) {
	tok, err := g.store.Read(ctx)
	if err != nil {
		g.metrics.Inc(MetricStorageFailure)
		g.log.Warn("gate.token.read.fail",
			slog.String("check_id", checkID),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	if tok == "" {
		return "", false
	}

	claims, err := token.DecodePayload(tok)
	if err != nil {
		g.metrics.Inc(MetricDecodeFailure)
		g.log.Warn("gate.token.decode.fail",
			slog.String("check_id", checkID),
			slog.String("error", err.Error()),
		)
		return "", false
	}

	exp, ok := claims.ExpiresAtTime()
	if !ok || exp.Unix() > g.now().Unix() {
		return tok, true
	}

	if err := g.store.Clear(ctx); err != nil {
		g.metrics.Inc(MetricStorageFailure)
		g.log.Warn("gate.token.clear.fail",
			slog.String("check_id", checkID),
			slog.String("error", err.Error()),
		)
	} else {
		g.metrics.Inc(MetricExpiredCleared)
	}
	g.emitAudit(ctx, AuditEvent{
		EventType: AuditTokenCleared,
		CheckID:   checkID,
		Success:   err == nil,
		Error:     errString(err),
		Metadata:  map[string]string{"reason": "expired"},
	})
	return "", false
}

/*
====================================
REDIRECTS
====================================
*/

func (g *Gate) evaluateRedirect(t trigger) {
	if !g.mounted || g.status == StatusUnknown {
		return
	}

	target, ok := g.cfg.Routes.RedirectFor(g.status == StatusAuthenticated, g.path)
	if !ok {
		return
	}

	if g.guard {
		g.metrics.Inc(MetricRedirectDropped)
		g.log.Debug("gate.redirect.dropped",
			slog.String("target", target),
			slog.String("trigger", string(t)),
		)
		return
	}

	g.guard = true
	g.publish()
	g.metrics.Inc(MetricRedirectIssued)

	from := g.path
	err := g.nav.Navigate(g.mountCtx, target)
	if err != nil {
		g.log.Warn("gate.redirect.fail",
			slog.String("from", from),
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
	} else {
		g.log.Info("gate.redirect",
			slog.String("from", from),
			slog.String("target", target),
			slog.String("status", g.status.String()),
		)
	}
	g.emitAudit(g.mountCtx, AuditEvent{
		EventType: AuditRedirect,
		Path:      from,
		Target:    target,
		Status:    g.status.String(),
		Success:   err == nil,
		Error:     errString(err),
		Metadata:  map[string]string{"trigger": string(t)},
	})

	// Released on the next turn of the loop, after anything Navigate enqueued.
	g.post(func() {
		g.guard = false
		g.publish()
	})
}

/*
====================================
READ ACCESS
====================================
*/

// Snapshot returns the most recently published state.
func (g *Gate) Snapshot() State {
	return *g.snap.Load()
}

// Status returns the current session status.
func (g *Gate) Status() Status {
	return g.Snapshot().Status
}

// Authenticated returns (authed, known); known is false until the first check settles.
func (g *Gate) Authenticated() (bool, bool) {
	return g.Snapshot().Authenticated()
}

// Subscribe returns a channel that receives the latest state after every change.
// Slow subscribers only see the most recent state. The returned func
// unsubscribes; the channel is closed by it or by Close.
func (g *Gate) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	ch <- g.Snapshot()

	g.subsMu.Lock()
	if g.subsClosed {
		g.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	g.subSeq++
	id := g.subSeq
	g.subs[id] = ch
	g.subsMu.Unlock()

	return ch, func() {
		g.subsMu.Lock()
		defer g.subsMu.Unlock()
		if c, ok := g.subs[id]; ok {
			delete(g.subs, id)
			close(c)
		}
	}
}

// MetricsSnapshot returns a copy of the gate's counters.
func (g *Gate) MetricsSnapshot() MetricsSnapshot {
	return g.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (g *Gate) AuditDropped() uint64 {
	return g.audit.Dropped()
}

func (g *Gate) publish() {
	st := State{
		Phase:       g.phase,
		Status:      g.status,
		Path:        g.path,
		Mounted:     g.mounted,
		Pending:     g.pending,
		Redirecting: g.guard,
	}
	g.snap.Store(&st)

	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	for _, ch := range g.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func (g *Gate) emitAudit(ctx context.Context, ev AuditEvent) {
	if g.audit == nil {
		return
	}
	if ctx == nil || errors.Is(ctx.Err(), context.Canceled) {
		ctx = context.Background()
	}
	ev.Timestamp = g.now()
	g.audit.Emit(ctx, ev)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
