package dto

import "time"

type TabActivatedInput struct {
	TabID    string
	WindowID string
	URL      string
}

type TabUpdatedInput struct {
	TabID string
	URL   string
}

type DomainTotalOutput struct {
	Domain string `json:"domain" yaml:"domain"`
	Ms     int64  `json:"ms" yaml:"ms"`
}

type DayBucketOutput struct {
	Day     string           `json:"day" yaml:"day"`
	TotalMs int64            `json:"total_ms" yaml:"total_ms"`
	Domains map[string]int64 `json:"domains" yaml:"domains"`
}

type TimeDataOutput struct {
	From    string              `json:"from" yaml:"from"`
	To      string              `json:"to" yaml:"to"`
	Days    int                 `json:"days" yaml:"days"`
	TotalMs int64               `json:"total_ms" yaml:"total_ms"`
	Totals  []DomainTotalOutput `json:"totals" yaml:"totals"`
	Buckets []DayBucketOutput   `json:"buckets" yaml:"buckets"`
}

type StateOutput struct {
	State  string    `json:"state" yaml:"state"`
	TabID  string    `json:"tab_id,omitempty" yaml:"tab_id,omitempty"`
	Domain string    `json:"domain,omitempty" yaml:"domain,omitempty"`
	Since  time.Time `json:"since,omitempty" yaml:"since,omitempty"`
}
