package domain

import (
	"math"
	"sort"
)

// WatchThreshold is the watched fraction of a video at which a lesson counts
// as complete.
const WatchThreshold = 0.8

// CourseProgress returns completed/total as a percentage rounded to one
// decimal and clamped to [0, 100]. A course without lessons is at 0.
func CourseProgress(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	if completed < 0 {
		completed = 0
	}
	pct := math.Min(float64(completed)/float64(total)*100, 100)
	return roundOneDecimal(pct)
}

// IsThresholdReached reports whether currentTime covers at least
// WatchThreshold of duration.
func IsThresholdReached(currentTime, duration float64) bool {
	if duration <= 0 {
		return false
	}
	return currentTime/duration >= WatchThreshold
}

// ModuleWeightedProgress averages per-module completion percentages, so a
// short module weighs as much as a long one. Modules without lessons are
// skipped.
func ModuleWeightedProgress(c *Catalog, completed map[string]struct{}) float64 {
	if c == nil {
		return 0
	}
	var sum float64
	valid := 0
	for _, m := range c.Modules {
		if m == nil || len(m.Lessons) == 0 {
			continue
		}
		done := 0
		for _, l := range m.Lessons {
			if l == nil {
				continue
			}
			if _, ok := completed[l.ID]; ok {
				done++
			}
		}
		sum += float64(done) / float64(len(m.Lessons)) * 100
		valid++
	}
	if valid == 0 {
		return 0
	}
	return roundOneDecimal(sum / float64(valid))
}

// CompletionReport classifies a list of completed lesson IDs against a catalog.
type CompletionReport struct {
	Valid      []string `json:"valid"`
	Invalid    []string `json:"invalid"`
	Duplicates []string `json:"duplicates"`
}

// ValidateCompletions splits completed into IDs known to the catalog and IDs
// that are not, and lists IDs that occur more than once. Input order is kept.
func ValidateCompletions(c *Catalog, completed []string) CompletionReport {
	known := make(map[string]struct{})
	for _, l := range c.Lessons() {
		known[l.ID] = struct{}{}
	}

	var report CompletionReport
	seen := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		if _, ok := known[id]; ok {
			report.Valid = append(report.Valid, id)
		} else {
			report.Invalid = append(report.Invalid, id)
		}
		if _, dup := seen[id]; dup {
			report.Duplicates = append(report.Duplicates, id)
		} else {
			seen[id] = struct{}{}
		}
	}
	return report
}

// SortedIDs returns the members of set in ascending order.
func SortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
