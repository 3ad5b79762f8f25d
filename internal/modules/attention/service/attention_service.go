package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tabclock/internal/modules/attention/domain"
	attentionout "tabclock/internal/modules/attention/port/out"
	"tabclock/internal/platform/browser"
	"tabclock/internal/platform/clock"
	"tabclock/internal/platform/logging"
)

// AttentionService owns the single live attention segment. It is not safe
// for concurrent use.
type AttentionService struct {
	clock  clock.Clock
	policy domain.Policy
	ledger attentionout.LedgerStore
	env    browser.Environment
	logger *slog.Logger

	state domain.State
}

func NewAttentionService(clock clock.Clock, policy domain.Policy, ledger attentionout.LedgerStore, env browser.Environment, logger *slog.Logger) *AttentionService {
	return &AttentionService{
		clock:  clock,
		policy: policy,
		ledger: ledger,
		env:    env,
		logger: logging.OrDiscard(logger),
		state:  domain.Unfocused{},
	}
}

func (s *AttentionService) State() domain.State {
	return s.state
}

// TabActivated handles a tab switch. An unfocused tracker asks the
// environment whether a window has focus after all, since focus events can
// be missing after a restart.
func (s *AttentionService) TabActivated(ctx context.Context, tabID, url string) error {
	if url == "" {
		url = s.lookupURL(ctx, tabID)
	}
	now := s.clock.Now()
	next, closed := domain.Activate(s.state, tabID, url, now)
	if err := s.apply(ctx, next, closed, now); err != nil {
		return err
	}
	if _, unfocused := next.(domain.Unfocused); unfocused {
		return s.Recover(ctx)
	}
	return nil
}

func (s *AttentionService) TabUpdated(ctx context.Context, tabID, url string) error {
	if url == "" {
		return nil
	}
	now := s.clock.Now()
	next, closed := domain.Navigate(s.state, tabID, url, now)
	return s.apply(ctx, next, closed, now)
}

func (s *AttentionService) TabRemoved(ctx context.Context, tabID string) error {
	next, closed := domain.Close(s.state, tabID)
	return s.apply(ctx, next, closed, s.clock.Now())
}

// WindowFocusChanged handles focus moving to windowID, or to no browser
// window when windowID is empty.
func (s *AttentionService) WindowFocusChanged(ctx context.Context, windowID string) error {
	if windowID == "" {
		next, closed := domain.Blur(s.state)
		return s.apply(ctx, next, closed, s.clock.Now())
	}
	tab, _ := browser.ActiveTab(ctx, s.env, windowID)
	now := s.clock.Now()
	next, closed := domain.Focus(s.state, tab.ID, tab.URL, now)
	return s.apply(ctx, next, closed, now)
}

// Tick is the watchdog step: a running segment is flushed and reopened,
// otherwise the foreground tab is re-derived from the environment.
func (s *AttentionService) Tick(ctx context.Context) error {
	if _, ok := domain.Running(s.state); ok {
		return s.Flush(ctx)
	}
	return s.Recover(ctx)
}

// Flush commits the running segment and reopens it on the same target. A
// segment younger than the minimum keeps accumulating instead, so repeated
// flushes never drop time.
func (s *AttentionService) Flush(ctx context.Context) error {
	now := s.clock.Now()
	seg, ok := domain.Running(s.state)
	if !ok || !s.policy.Settled(seg, now) {
		return nil
	}
	next, closed := domain.Roll(s.state, now)
	return s.apply(ctx, next, closed, now)
}

// Recover rebuilds tracker state from the environment after memory was
// lost. Finding no focused window leaves the state unchanged.
func (s *AttentionService) Recover(ctx context.Context) error {
	tab, ok := browser.FocusedTab(ctx, s.env)
	if !ok {
		return nil
	}
	if seg, running := domain.Running(s.state); running && seg.TabID == tab.ID && seg.Domain == browser.DomainOf(tab.URL) {
		return nil
	}
	now := s.clock.Now()
	next, closed := domain.Focus(s.state, tab.ID, tab.URL, now)
	return s.apply(ctx, next, closed, now)
}

func (s *AttentionService) TimeData(ctx context.Context, days int) (domain.Report, error) {
	ledger, err := s.ledger.Load(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	return ledger.Window(days, s.clock.Now()), nil
}

// apply installs next before the closed segment is written, so a second
// caller can never observe and commit the same interval.
func (s *AttentionService) apply(ctx context.Context, next domain.State, closed *domain.Segment, now time.Time) error {
	s.state = next
	if seg, ok := domain.Running(next); ok && (closed == nil || closed.TabID != seg.TabID || closed.Domain != seg.Domain) {
		s.logger.Debug("segment started", "tab_id", seg.TabID, "domain", seg.Domain)
	}
	if closed == nil {
		return nil
	}
	return s.commit(ctx, *closed, now)
}

func (s *AttentionService) commit(ctx context.Context, seg domain.Segment, now time.Time) error {
	credit, ok := s.policy.Credit(seg, now)
	if !ok {
		s.logger.Debug("segment discarded", "domain", seg.Domain, "elapsed", now.Sub(seg.StartedAt).String())
		return nil
	}
	if err := s.ledger.Add(ctx, credit); err != nil {
		return fmt.Errorf("commit %s on %s: %w", credit.Domain, credit.Day, err)
	}
	s.logger.Debug("segment committed", "domain", credit.Domain, "day", credit.Day, "ms", credit.Ms)
	return nil
}

func (s *AttentionService) lookupURL(ctx context.Context, tabID string) string {
	if s.env == nil || tabID == "" {
		return ""
	}
	tab, err := s.env.Tab(ctx, tabID)
	if err != nil {
		return ""
	}
	return tab.URL
}
