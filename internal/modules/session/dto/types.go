package dto

import "time"

type TabUpsertInput struct {
	TabID string
	URL   string
	Title string
}

type TabRecordOutput struct {
	TabID  string     `json:"tab_id,omitempty" yaml:"tab_id,omitempty"`
	URL    string     `json:"url" yaml:"url"`
	Title  string     `json:"title" yaml:"title"`
	Domain string     `json:"domain" yaml:"domain"`
	Opened time.Time  `json:"opened" yaml:"opened"`
	Closed *time.Time `json:"closed" yaml:"closed"`
	OpenMs int64      `json:"open_ms,omitempty" yaml:"open_ms,omitempty"`
}

type SessionOutput struct {
	ID       string            `json:"session_id" yaml:"session_id"`
	Start    time.Time         `json:"start" yaml:"start"`
	End      time.Time         `json:"end" yaml:"end"`
	TabCount int               `json:"tab_count" yaml:"tab_count"`
	Tabs     []TabRecordOutput `json:"tabs" yaml:"tabs"`
}

type CurrentSessionOutput struct {
	ID    string            `json:"session_id" yaml:"session_id"`
	Start time.Time         `json:"start" yaml:"start"`
	Tabs  []TabRecordOutput `json:"tabs" yaml:"tabs"`
}

type SessionsOutput struct {
	MaxSessions int                   `json:"max_sessions" yaml:"max_sessions"`
	Sessions    []SessionOutput       `json:"sessions" yaml:"sessions"`
	Current     *CurrentSessionOutput `json:"current,omitempty" yaml:"current,omitempty"`
}

type FinishOutput struct {
	Archived bool           `json:"archived" yaml:"archived"`
	Session  *SessionOutput `json:"session,omitempty" yaml:"session,omitempty"`
}
