package domain

import (
	"sort"
	"time"
)

type TabRecord struct {
	URL    string     `json:"url"`
	Title  string     `json:"title"`
	Domain string     `json:"domain"`
	Opened time.Time  `json:"opened"`
	Closed *time.Time `json:"closed"`
}

// OpenDuration is Closed minus Opened, reported only for closed records.
func (r TabRecord) OpenDuration() (time.Duration, bool) {
	if r.Closed == nil || r.Opened.IsZero() {
		return 0, false
	}
	d := r.Closed.Sub(r.Opened)
	if d < 0 {
		d = 0
	}
	return d, true
}

// Entry pairs a record with the tab it was observed on.
type Entry struct {
	TabID string
	TabRecord
}

// Snapshot is the in-flight session, checkpointed after every mutation.
type Snapshot struct {
	SessionID    string               `json:"session_id"`
	SessionStart time.Time            `json:"session_start"`
	SessionTabs  map[string]TabRecord `json:"session_tabs"`
}

func NewSnapshot(sessionID string, start time.Time) *Snapshot {
	return &Snapshot{SessionID: sessionID, SessionStart: start, SessionTabs: map[string]TabRecord{}}
}

// Upsert records a new tab or a navigation. A known tab keeps its Opened
// time and is reopened; an empty title keeps the previous one.
func (s *Snapshot) Upsert(tabID, url, title, domain string, now time.Time) {
	if s.SessionTabs == nil {
		s.SessionTabs = map[string]TabRecord{}
	}
	rec, ok := s.SessionTabs[tabID]
	if !ok {
		rec = TabRecord{Opened: now}
	}
	rec.URL = url
	rec.Domain = domain
	if title != "" || !ok {
		rec.Title = title
	}
	rec.Closed = nil
	s.SessionTabs[tabID] = rec
}

// Close marks an open record closed. It reports whether anything changed.
func (s *Snapshot) Close(tabID string, now time.Time) bool {
	rec, ok := s.SessionTabs[tabID]
	if !ok || rec.Closed != nil {
		return false
	}
	closed := now
	rec.Closed = &closed
	s.SessionTabs[tabID] = rec
	return true
}

// Entries lists every record ordered by Opened, then URL, then tab id.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.SessionTabs))
	for id, rec := range s.SessionTabs {
		out = append(out, Entry{TabID: id, TabRecord: rec})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Opened.Equal(out[j].Opened) {
			return out[i].Opened.Before(out[j].Opened)
		}
		if out[i].URL != out[j].URL {
			return out[i].URL < out[j].URL
		}
		return out[i].TabID < out[j].TabID
	})
	return out
}

// Clone returns a deep copy so callers cannot mutate the live snapshot.
func (s *Snapshot) Clone() Snapshot {
	out := Snapshot{SessionID: s.SessionID, SessionStart: s.SessionStart, SessionTabs: make(map[string]TabRecord, len(s.SessionTabs))}
	for id, rec := range s.SessionTabs {
		if rec.Closed != nil {
			closed := *rec.Closed
			rec.Closed = &closed
		}
		out.SessionTabs[id] = rec
	}
	return out
}

// Seal turns the snapshot into an archived session ending at end. Records
// without a URL are dropped and TabCount counts distinct URLs.
func (s *Snapshot) Seal(end time.Time) Session {
	tabs := []TabRecord{}
	unique := map[string]struct{}{}
	for _, e := range s.Entries() {
		if e.URL == "" {
			continue
		}
		tabs = append(tabs, e.TabRecord)
		unique[e.URL] = struct{}{}
	}
	return Session{
		ID:       s.SessionID,
		Start:    s.SessionStart,
		End:      end,
		TabCount: len(unique),
		Tabs:     tabs,
	}
}

type Session struct {
	ID       string      `json:"session_id"`
	Start    time.Time   `json:"start"`
	End      time.Time   `json:"end"`
	TabCount int         `json:"tab_count"`
	Tabs     []TabRecord `json:"tabs"`
}

// Archive holds completed sessions, most recent first.
type Archive []Session

// Prepend puts session at the front and trims to limit. A session whose id is
// already archived is not added again.
func (a Archive) Prepend(session Session, limit int) Archive {
	for _, existing := range a {
		if existing.ID == session.ID {
			return a.Trim(limit)
		}
	}
	out := make(Archive, 0, len(a)+1)
	out = append(out, session)
	out = append(out, a...)
	return out.Trim(limit)
}

// Trim drops the oldest sessions beyond limit. A non-positive limit keeps one.
func (a Archive) Trim(limit int) Archive {
	if limit < 1 {
		limit = 1
	}
	if len(a) <= limit {
		return a
	}
	return a[:limit]
}
