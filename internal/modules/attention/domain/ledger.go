package domain

import (
	"sort"
	"time"
)

// Ledger maps domain -> day key -> accumulated milliseconds.
type Ledger map[string]map[string]int64

func (l Ledger) Add(c Credit) {
	if c.Ms <= 0 || c.Domain == "" || c.Day == "" {
		return
	}
	days, ok := l[c.Domain]
	if !ok {
		days = map[string]int64{}
		l[c.Domain] = days
	}
	days[c.Day] += c.Ms
}

type DomainTotal struct {
	Domain string
	Ms     int64
}

type DayBucket struct {
	Day     string
	TotalMs int64
	Domains map[string]int64
}

type Report struct {
	From    string
	To      string
	Days    int
	TotalMs int64
	Totals  []DomainTotal
	Buckets []DayBucket
}

const MaxReportDays = 366

// Window summarizes the trailing days ending with the local day of now.
// Every day of the window gets a bucket, empty or not.
func (l Ledger) Window(days int, now time.Time) Report {
	if days < 1 {
		days = 1
	}
	if days > MaxReportDays {
		days = MaxReportDays
	}
	today := Midnight(now)
	buckets := make([]DayBucket, 0, days)
	index := make(map[string]int, days)
	for i := days - 1; i >= 0; i-- {
		key := DayKey(today.AddDate(0, 0, -i))
		index[key] = len(buckets)
		buckets = append(buckets, DayBucket{Day: key, Domains: map[string]int64{}})
	}

	totals := map[string]int64{}
	var grand int64
	for domain, perDay := range l {
		for day, ms := range perDay {
			i, ok := index[day]
			if !ok || ms <= 0 {
				continue
			}
			buckets[i].Domains[domain] += ms
			buckets[i].TotalMs += ms
			totals[domain] += ms
			grand += ms
		}
	}

	out := make([]DomainTotal, 0, len(totals))
	for domain, ms := range totals {
		out = append(out, DomainTotal{Domain: domain, Ms: ms})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ms != out[j].Ms {
			return out[i].Ms > out[j].Ms
		}
		return out[i].Domain < out[j].Domain
	})
	return Report{
		From:    buckets[0].Day,
		To:      buckets[len(buckets)-1].Day,
		Days:    days,
		TotalMs: grand,
		Totals:  out,
		Buckets: buckets,
	}
}
