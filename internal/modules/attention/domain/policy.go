package domain

import "time"

const DayLayout = "2006-01-02"

// Credit is one committed ledger increment.
type Credit struct {
	Domain string
	Day    string
	Ms     int64
}

// Policy bounds what a closed segment may credit. Segments shorter than
// MinSegment are noise; segments of MaxSegment or longer are treated as
// stale (sleep, lost events) and dropped whole.
type Policy struct {
	MinSegment time.Duration
	MaxSegment time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MinSegment: time.Second, MaxSegment: 2 * time.Hour}
}

// Credit converts a segment closed at now into a ledger increment for the
// local day of now, capped at the time elapsed since that day's midnight.
func (p Policy) Credit(seg Segment, now time.Time) (Credit, bool) {
	if seg.Domain == "" || seg.StartedAt.IsZero() {
		return Credit{}, false
	}
	elapsed := now.Sub(seg.StartedAt).Milliseconds()
	if elapsed < p.MinSegment.Milliseconds() || elapsed >= p.MaxSegment.Milliseconds() {
		return Credit{}, false
	}
	if since := now.Sub(Midnight(now)).Milliseconds(); elapsed > since {
		elapsed = since
	}
	if elapsed <= 0 {
		return Credit{}, false
	}
	return Credit{Domain: seg.Domain, Day: DayKey(now), Ms: elapsed}, true
}

// Settled reports whether a running segment is old enough to be worth
// committing early.
func (p Policy) Settled(seg Segment, now time.Time) bool {
	return now.Sub(seg.StartedAt) >= p.MinSegment
}

func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
