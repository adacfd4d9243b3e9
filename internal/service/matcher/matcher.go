// Package matcher finds the first offered drop-off interval that equals a
// daily time window.
package matcher

import (
	"time"

	"github.com/andres10976/slotwatch/internal/model"
)

// layouts accepted for interval boundaries, tried in order.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Match scans candidates, their days and their intervals in order and
// returns the first interval whose boundaries equal target to the minute.
// Boundaries are compared as wall-clock time in the interval's own offset.
func Match(target model.Window, candidates []model.Candidate) (model.Match, bool) {
	for _, c := range candidates {
		if m, ok := MatchCandidate(target, c); ok {
			return m, true
		}
	}
	return model.Match{}, false
}

// MatchCandidate is Match restricted to a single candidate.
func MatchCandidate(target model.Window, c model.Candidate) (model.Match, bool) {
	start, end := target.Start.Clock(), target.End.Clock()

	for di, day := range c.Days {
		for ii, iv := range day.Intervals {
			from, ok := clock(iv.From)
			if !ok || from != start {
				continue
			}
			to, ok := clock(iv.To)
			if !ok || to != end {
				continue
			}
			return model.Match{
				WarehouseID:   c.WarehouseID,
				DayIndex:      di,
				Date:          day.Date,
				IntervalIndex: ii,
				Interval:      iv,
			}, true
		}
	}
	return model.Match{}, false
}

// clock returns the HH:MM part of a timestamp. Unparseable values never match.
func clock(ts string) (string, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}
