package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	attentiondto "tabclock/internal/modules/attention/dto"
	attentionin "tabclock/internal/modules/attention/port/in"
	sessiondto "tabclock/internal/modules/session/dto"
	sessionin "tabclock/internal/modules/session/port/in"
	"tabclock/internal/modules/tracker/dto"
	trackerout "tabclock/internal/modules/tracker/port/out"
	"tabclock/internal/platform/clock"
	"tabclock/internal/platform/config"
	apperrors "tabclock/internal/platform/errors"
	"tabclock/internal/platform/logging"
)

type RuntimeOptions struct {
	TickInterval      time.Duration
	NewSessionOnStart bool
}

func OptionsFromConfig(cfg config.Config) RuntimeOptions {
	return RuntimeOptions{TickInterval: cfg.TickInterval, NewSessionOnStart: cfg.NewSessionOnStart}
}

type message struct {
	name  string
	fn    func(ctx context.Context) error
	reply chan error
}

// Runtime is the single owner of both trackers. Every mutation and query
// runs on the goroutine inside Run, one message at a time, together with
// the watchdog tick.
type Runtime struct {
	attention attentionin.Usecase
	session   sessionin.Usecase
	mirror    trackerout.EventMirror
	clock     clock.Clock
	opts      RuntimeOptions
	logger    *slog.Logger

	inbox   chan message
	done    chan struct{}
	running atomic.Bool

	startedAt  time.Time
	lastTickAt time.Time
	events     uint64
	failures   uint64
}

func NewRuntime(attention attentionin.Usecase, session sessionin.Usecase, mirror trackerout.EventMirror, clock clock.Clock, opts RuntimeOptions, logger *slog.Logger) *Runtime {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 30 * time.Second
	}
	return &Runtime{
		attention: attention,
		session:   session,
		mirror:    mirror,
		clock:     clock,
		opts:      opts,
		logger:    logging.OrDiscard(logger),
		inbox:     make(chan message),
		done:      make(chan struct{}),
	}
}

// Run bootstraps both trackers and processes messages until ctx is done,
// then flushes. The in-flight session is left checkpointed so the next Run
// restores it; only browser_started and browser_closing end a session. Run
// may be called once.
func (r *Runtime) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("tracker runtime already started")
	}
	defer close(r.done)

	r.startedAt = r.clock.Now()
	r.bootstrap(ctx)

	ticker := time.NewTicker(r.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.shutdown(context.WithoutCancel(ctx))
			return nil
		case msg := <-r.inbox:
			msg.reply <- r.step(ctx, msg.name, msg.fn)
		case <-ticker.C:
			r.lastTickAt = r.clock.Now()
			_ = r.step(ctx, "tick", r.attention.Tick)
		}
	}
}

// Done is closed once Run has returned.
func (r *Runtime) Done() <-chan struct{} {
	return r.done
}

// Dispatch routes one browser event to the trackers. Handler failures are
// logged and never returned; only a rejected event is an error.
func (r *Runtime) Dispatch(ctx context.Context, event dto.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	return r.call(ctx, "event "+string(event.Kind), func(ctx context.Context) error {
		r.events++
		if r.mirror != nil {
			r.mirror.Observe(event)
		}
		r.route(ctx, event)
		return nil
	})
}

func (r *Runtime) Flush(ctx context.Context) error {
	return r.call(ctx, "flush", r.attention.Flush)
}

func (r *Runtime) TimeData(ctx context.Context, days int) (attentiondto.TimeDataOutput, error) {
	var out attentiondto.TimeDataOutput
	err := r.call(ctx, "time data", func(ctx context.Context) error {
		var err error
		out, err = r.attention.TimeData(ctx, days)
		return err
	})
	return out, err
}

func (r *Runtime) Sessions(ctx context.Context) (sessiondto.SessionsOutput, error) {
	var out sessiondto.SessionsOutput
	err := r.call(ctx, "sessions", func(ctx context.Context) error {
		var err error
		out, err = r.session.Sessions(ctx)
		return err
	})
	return out, err
}

func (r *Runtime) SetMaxSessions(ctx context.Context, n int) (int, error) {
	var out int
	err := r.call(ctx, "set max sessions", func(ctx context.Context) error {
		var err error
		out, err = r.session.SetMaxSessions(ctx, n)
		return err
	})
	return out, err
}

func (r *Runtime) Status(ctx context.Context) (dto.StatusOutput, error) {
	var out dto.StatusOutput
	err := r.call(ctx, "status", func(ctx context.Context) error {
		out = dto.StatusOutput{
			Attention:  r.attention.State(ctx),
			StartedAt:  r.startedAt,
			LastTickAt: r.lastTickAt,
			Events:     r.events,
			Failures:   r.failures,
		}
		sessions, err := r.session.Sessions(ctx)
		if err != nil {
			return err
		}
		if cur := sessions.Current; cur != nil {
			out.Session = &dto.SessionSummary{ID: cur.ID, Start: cur.Start, Tabs: len(cur.Tabs)}
		}
		return nil
	})
	return out, err
}

func (r *Runtime) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	msg := message{name: name, fn: fn, reply: make(chan error, 1)}
	select {
	case r.inbox <- msg:
	case <-r.done:
		return apperrors.ErrRuntimeStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-msg.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runtime) route(ctx context.Context, event dto.Event) {
	switch event.Kind {
	case dto.KindTabActivated:
		_ = r.step(ctx, "attention tab activated", func(ctx context.Context) error {
			return r.attention.TabActivated(ctx, attentiondto.TabActivatedInput{TabID: event.TabID, WindowID: event.WindowID, URL: event.URL})
		})
	case dto.KindTabUpdated:
		if event.URL == "" {
			return
		}
		_ = r.step(ctx, "attention tab updated", func(ctx context.Context) error {
			return r.attention.TabUpdated(ctx, attentiondto.TabUpdatedInput{TabID: event.TabID, URL: event.URL})
		})
		_ = r.step(ctx, "session tab updated", func(ctx context.Context) error {
			return r.session.TabUpserted(ctx, sessiondto.TabUpsertInput{TabID: event.TabID, URL: event.URL, Title: event.Title})
		})
	case dto.KindTabCreated:
		_ = r.step(ctx, "session tab created", func(ctx context.Context) error {
			return r.session.TabUpserted(ctx, sessiondto.TabUpsertInput{TabID: event.TabID, URL: event.URL, Title: event.Title})
		})
	case dto.KindTabRemoved:
		_ = r.step(ctx, "attention tab removed", func(ctx context.Context) error {
			return r.attention.TabRemoved(ctx, event.TabID)
		})
		_ = r.step(ctx, "session tab removed", func(ctx context.Context) error {
			return r.session.TabClosed(ctx, event.TabID)
		})
	case dto.KindWindowFocusChanged:
		_ = r.step(ctx, "attention focus", func(ctx context.Context) error {
			return r.attention.WindowFocusChanged(ctx, event.WindowID)
		})
	case dto.KindBrowserStarted:
		_ = r.step(ctx, "session startup", r.startup)
		_ = r.step(ctx, "attention bootstrap", r.attention.Bootstrap)
	case dto.KindBrowserClosing:
		_ = r.step(ctx, "attention flush", r.attention.Flush)
		_ = r.step(ctx, "attention blur", func(ctx context.Context) error {
			return r.attention.WindowFocusChanged(ctx, "")
		})
		_ = r.step(ctx, "session finish", r.finish)
	}
}

func (r *Runtime) bootstrap(ctx context.Context) {
	_ = r.step(ctx, "session restore", r.session.Restore)
	_ = r.step(ctx, "attention bootstrap", r.attention.Bootstrap)
	if r.opts.NewSessionOnStart {
		_ = r.step(ctx, "session startup", r.startup)
	}
	r.logger.Info("tracker runtime started", "tick", r.opts.TickInterval.String())
}

func (r *Runtime) shutdown(ctx context.Context) {
	_ = r.step(ctx, "attention flush", r.attention.Flush)
	r.logger.Info("tracker runtime stopped", "events", r.events, "failures", r.failures)
}

func (r *Runtime) startup(ctx context.Context) error {
	_, err := r.session.Startup(ctx)
	return err
}

func (r *Runtime) finish(ctx context.Context) error {
	_, err := r.session.Finish(ctx)
	return err
}

// step runs one handler. Errors and panics are logged and counted so a
// failing handler never stops event processing.
func (r *Runtime) step(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", name, p)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			r.failures++
			r.logger.Error("tracker handler failed", "op", name, "error", err)
		}
	}()
	return fn(ctx)
}
