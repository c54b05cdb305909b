// Package core runs the dispatch loop that owns all tracking state. Browser
// events, transport callbacks, timer ticks and status queries all execute on
// one goroutine; nothing in here needs a lock.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nv4818/webtrack/internal/browser"
	"github.com/nv4818/webtrack/internal/config"
	"github.com/nv4818/webtrack/internal/domain"
	"github.com/nv4818/webtrack/internal/metadata"
	"github.com/nv4818/webtrack/internal/model"
	"github.com/nv4818/webtrack/internal/protocol"
	"github.com/nv4818/webtrack/internal/report"
	"github.com/nv4818/webtrack/internal/sched"
	"github.com/nv4818/webtrack/internal/store"
	"github.com/nv4818/webtrack/internal/tracker"
	"github.com/nv4818/webtrack/internal/transport"
)

// IdleProber answers the platform idle query on demand. The report tick
// re-polls it so a stale idle flag cannot inflate a report.
type IdleProber interface {
	CurrentIdleState() model.IdleState
}

type Core struct {
	cfg   config.Config
	st    *store.Store
	clock tracker.Clock
	idle  IdleProber

	tr        *transport.Transport
	acc       *tracker.Accumulator
	meta      *metadata.Cache
	builder   report.Builder
	scheduler sched.Scheduler

	session model.Session

	currentURL     string
	currentFavicon string

	periodStart  time.Time
	lastReportAt *time.Time
	reportTimer  sched.Timer

	funcs chan func()
	stop  chan struct{}
	done  chan struct{}
}

type Options struct {
	// Dialer and Scheduler default to the real network and real timers.
	Dialer    transport.Dialer
	Scheduler sched.Scheduler
	Clock     tracker.Clock
	Idle      IdleProber
}

func New(cfg config.Config, st *store.Store, opts Options) *Core {
	if opts.Scheduler == nil {
		opts.Scheduler = sched.New()
	}
	if opts.Clock == nil {
		opts.Clock = tracker.SystemClock{}
	}
	c := &Core{
		cfg:       cfg,
		st:        st,
		clock:     opts.Clock,
		idle:      opts.Idle,
		acc:       tracker.New(opts.Clock),
		builder:   report.NewBuilder(cfg.MaxReportSeconds),
		scheduler: opts.Scheduler,
		funcs:     make(chan func(), 128),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	info := browser.Detect(cfg.UserAgent)
	c.tr = transport.New(transport.Config{
		Addr:           fmt.Sprintf("127.0.0.1:%d", cfg.PeerPort),
		ConnectTimeout: cfg.ConnectTimeout,
		ReconnectDelay: cfg.ReconnectDelay,
		MaxInbound:     cfg.MaxInboundMessage,
		Browser:        protocol.BrowserInfo{Name: info.Name, Version: info.Version},
		Capabilities:   cfg.Capabilities,
		ExtVersion:     cfg.ExtensionVersion,
	}, opts.Dialer, opts.Scheduler, c.dispatch, transport.Hooks{
		Authenticated: c.onAuthenticated,
		TokenApproved: c.onTokenApproved,
		TokenRejected: c.onTokenRejected,
		Disconnected:  c.onDisconnected,
	})
	return c
}

// Start loads persisted state, begins the dispatch loop, and kicks off the
// first connection attempt.
func (c *Core) Start(ctx context.Context) error {
	session, err := c.st.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session.ClientID == "" {
		session.ClientID = uuid.NewString()
		if err := c.st.SetClientID(ctx, session.ClientID); err != nil {
			return fmt.Errorf("assign client id: %w", err)
		}
	}
	sent, err := c.st.LoadMetadataSentTimes(ctx)
	if err != nil {
		return fmt.Errorf("load metadata sends: %w", err)
	}
	if _, err := c.st.PruneMetadataSends(ctx, c.clock.Now().Add(-c.cfg.MetadataTTL)); err != nil {
		return fmt.Errorf("prune metadata sends: %w", err)
	}
	c.session = session
	c.meta = metadata.NewCache(c.cfg.MetadataTTL, sent)
	c.tr.SetSession(session)

	go c.run()
	c.dispatch(c.tr.Connect)
	return nil
}

// Stop flushes a final report on a best-effort basis, says goodbye, and
// terminates the dispatch loop.
func (c *Core) Stop() {
	c.dispatch(func() {
		c.flushReport()
		c.stopReportTimer()
		c.tr.Disconnect("shutdown")
		close(c.stop)
	})
	<-c.done
}

func (c *Core) run() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.funcs:
			fn()
		case <-c.stop:
			return
		}
	}
}

func (c *Core) dispatch(fn func()) {
	select {
	case c.funcs <- fn:
	case <-c.done:
	}
}

// Handle enqueues one browser activity event for the dispatch loop. Events
// and queries share one queue, so they apply in arrival order.
func (c *Core) Handle(ev model.BrowserEvent) {
	c.dispatch(func() { c.handleEvent(ev) })
}

func (c *Core) handleEvent(ev model.BrowserEvent) {
	switch ev.Kind {
	case model.EventTabActivated, model.EventURLChanged:
		c.setActiveTab(ev.URL, ev.FaviconURL)
	case model.EventFocusChanged:
		// Focus regain re-resolves the tab first so time lands on whatever
		// is actually frontmost now.
		if ev.Focused && ev.URL != "" {
			c.setActiveTab(ev.URL, ev.FaviconURL)
		}
		c.acc.SetFocus(ev.Focused)
	case model.EventIdleChanged:
		c.acc.SetIdle(ev.Idle.IsIdle())
	case model.EventInput:
		c.acc.RecordInput(c.acc.ActiveDomain(), ev.Input)
	}
}

func (c *Core) setActiveTab(url, faviconURL string) {
	c.currentURL = url
	c.currentFavicon = faviconURL
	d, ok := domain.Extract(url)
	if !ok {
		d = ""
	}
	if d != c.acc.ActiveDomain() {
		c.acc.SwitchActiveDomain(d)
	}
	c.maybeSendMetadata(d, faviconURL)
}

// maybeSendMetadata sends a metadata_update when the domain's record is
// missing or stale. Failed sends stay due; only a confirmed write marks the
// domain sent.
func (c *Core) maybeSendMetadata(d, faviconURL string) {
	if d == "" || !c.tr.Ready() {
		return
	}
	now := c.clock.Now()
	if !c.meta.NeedsUpdate(d, now) {
		return
	}
	msg := protocol.MetadataUpdate{
		Domain:      d,
		FaviconURLs: metadata.CandidateIconURLs(d, faviconURL),
	}
	if err := c.tr.Send(protocol.TypeMetadataUpdate, &msg); err != nil {
		return
	}
	c.meta.MarkSent(d, now)
	c.st.MarkMetadataSent(context.Background(), d, now) //nolint:errcheck
}

func (c *Core) onAuthenticated(protocol.Inbound) {
	if c.periodStart.IsZero() {
		c.periodStart = c.clock.Now()
	}
	c.startReportTimer()
	// Initial state sync: the active tab may owe metadata from before the
	// connection came up.
	if d, ok := domain.Extract(c.currentURL); ok {
		c.maybeSendMetadata(d, c.currentFavicon)
	}
}

func (c *Core) onTokenApproved(token string) {
	c.session.AuthToken = token
	c.tr.SetSession(c.session)
	c.st.SetAuthToken(context.Background(), token) //nolint:errcheck
}

func (c *Core) onTokenRejected() {
	c.session.AuthToken = ""
	c.tr.SetSession(c.session)
	c.st.SetAuthToken(context.Background(), "") //nolint:errcheck
}

func (c *Core) onDisconnected(string) {
	c.stopReportTimer()
}

func (c *Core) startReportTimer() {
	if c.reportTimer != nil {
		return
	}
	c.reportTimer = c.scheduler.AfterFunc(c.cfg.ReportInterval, func() {
		c.dispatch(func() {
			c.reportTimer = nil
			c.flushReport()
			if c.tr.Ready() {
				c.startReportTimer()
			}
		})
	})
}

func (c *Core) stopReportTimer() {
	if c.reportTimer != nil {
		c.reportTimer.Stop()
		c.reportTimer = nil
	}
}

// flushReport closes the running interval into the accumulator, builds one
// usage_report, and clears exactly the reported domains once the send
// succeeds. On any failure the counters stay put and the next tick retries,
// so delivery is at least once.
func (c *Core) flushReport() {
	if c.idle != nil {
		c.acc.SetIdle(c.idle.CurrentIdleState().IsIdle())
	}
	c.acc.CloseAndReopen()
	now := c.clock.Now()
	entries := c.builder.Build(c.acc.Usage())
	if len(entries) == 0 {
		c.periodStart = now
		return
	}
	if !c.tr.Ready() {
		return
	}
	msg := protocol.UsageReport{
		PeriodStart: c.periodStart.UnixMilli(),
		PeriodEnd:   now.UnixMilli(),
		Report:      entries,
	}
	if err := c.tr.Send(protocol.TypeUsageReport, &msg); err != nil {
		return
	}
	c.acc.ClearDomains(report.Domains(entries))
	c.periodStart = now
	c.lastReportAt = &now
}

// Status returns a point-in-time snapshot, consistent because it is taken on
// the dispatch loop.
func (c *Core) Status(ctx context.Context) (model.StatusSnapshot, error) {
	var snap model.StatusSnapshot
	err := c.call(ctx, func() {
		snap = model.StatusSnapshot{
			Connected:     c.tr.Ready(),
			Connecting:    c.tr.State() == model.ConnConnecting,
			Enabled:       c.session.Enabled,
			Paired:        c.session.Paired(),
			CurrentDomain: c.acc.ActiveDomain(),
			Reason:        c.tr.LastError(),
			LastReportAt:  c.lastReportAt,
		}
	})
	return snap, err
}

// SetEnabled flips tracking on or off and persists the choice. Disabling
// flushes what it can, disconnects, and stops reconnecting.
func (c *Core) SetEnabled(ctx context.Context, enabled bool) error {
	if err := c.st.SetEnabled(ctx, enabled); err != nil {
		return err
	}
	return c.call(ctx, func() {
		c.session.Enabled = enabled
		c.tr.SetSession(c.session)
		if enabled {
			c.tr.Connect()
			return
		}
		c.flushReport()
		c.stopReportTimer()
		c.tr.Disconnect("disabled")
	})
}

// TestConnection probes the peer with a throwaway connection, leaving the
// session socket alone.
func (c *Core) TestConnection(ctx context.Context) error {
	return c.tr.Probe(ctx)
}

func (c *Core) call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	select {
	case c.funcs <- func() {
		fn()
		close(ran)
	}:
	case <-c.done:
		return fmt.Errorf("core stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-c.done:
		return fmt.Errorf("core stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}
