package eventlog

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the timing of a log. Durations are seconds: the gap
// from an event to the next event of the same case is attributed to the
// earlier activity, so the last event of a case is counted but carries
// no duration.
type Stats struct {
	Cases  int
	Events int

	ActivityCounts    map[string]int
	ActivityDurations map[string][]float64
	CaseDurations     []float64
	InterArrival      []float64 // gaps between case start times, in start order
}

// ComputeStats walks the case-sorted traces once. Empty traces are
// skipped.
func ComputeStats(log *Log) *Stats {
	s := &Stats{
		ActivityCounts:    make(map[string]int),
		ActivityDurations: make(map[string][]float64),
	}

	var starts []time.Time
	for _, trace := range log.Traces() {
		if len(trace.Events) == 0 {
			continue
		}
		s.Cases++
		s.Events += len(trace.Events)
		s.CaseDurations = append(s.CaseDurations, trace.Duration().Seconds())
		starts = append(starts, trace.Events[0].Timestamp)

		for i, e := range trace.Events {
			s.ActivityCounts[e.Activity]++
			if i < len(trace.Events)-1 {
				gap := trace.Events[i+1].Timestamp.Sub(e.Timestamp).Seconds()
				s.ActivityDurations[e.Activity] = append(s.ActivityDurations[e.Activity], gap)
			}
		}
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		s.InterArrival = append(s.InterArrival, starts[i].Sub(starts[i-1]).Seconds())
	}
	return s
}

// Activities returns the observed activity names, sorted.
func (s *Stats) Activities() []string {
	names := make([]string, 0, len(s.ActivityCounts))
	for name := range s.ActivityCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MeanDuration returns the mean duration of an activity in seconds, or
// zero when the activity was never followed by another event.
func (s *Stats) MeanDuration(activity string) float64 {
	xs := s.ActivityDurations[activity]
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// StdDuration returns the sample standard deviation of an activity's
// duration in seconds. Fewer than two observations yield zero.
func (s *Stats) StdDuration(activity string) float64 {
	xs := s.ActivityDurations[activity]
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// MeanCaseDuration returns the mean case duration in seconds.
func (s *Stats) MeanCaseDuration() float64 {
	if len(s.CaseDurations) == 0 {
		return 0
	}
	return stat.Mean(s.CaseDurations, nil)
}

// MeanInterArrival returns the mean gap between case starts in seconds.
func (s *Stats) MeanInterArrival() float64 {
	if len(s.InterArrival) == 0 {
		return 0
	}
	return stat.Mean(s.InterArrival, nil)
}
