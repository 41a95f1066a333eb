// Package usage folds dated daily counters into today, this-month and
// all-time totals.
package usage

import (
	"strings"
	"time"
)

// DateLayout is the key format of a daily usage record.
const DateLayout = "2006-01-02"

// Record is one dated counter. A zero Count means the day had no usage
// or the stored document carried no count.
type Record struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Summary holds the three rolling totals shown on every dashboard.
type Summary struct {
	Daily   int64 `json:"daily"`
	Monthly int64 `json:"monthly"`
	Total   int64 `json:"total"`
}

// Add returns the field-wise sum of s and o.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Daily:   s.Daily + o.Daily,
		Monthly: s.Monthly + o.Monthly,
		Total:   s.Total + o.Total,
	}
}

// Summarize folds records against the reference date today ("YYYY-MM-DD").
//
// Total counts every record. Monthly counts records whose date shares the
// "YYYY-MM" prefix of today, and Daily counts records dated exactly today.
// Dates are not validated: a malformed key only reaches Total.
func Summarize(today string, records []Record) Summary {
	month := today
	if len(month) > 7 {
		month = month[:7]
	}

	var s Summary
	for _, rec := range records {
		s.Total += rec.Count
		if strings.HasPrefix(rec.Date, month) {
			s.Monthly += rec.Count
		}
		if rec.Date == today {
			s.Daily += rec.Count
		}
	}
	return s
}

// Today formats now as a reference date in loc. A nil loc means UTC.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}

// Sum adds the Total of every summary, ignoring dates.
func Sum(summaries ...Summary) int64 {
	var total int64
	for _, s := range summaries {
		total += s.Total
	}
	return total
}
