// Package stats computes per-metric summary statistics over day entries.
// It maintains running count/sum/min/max and uses DDSketch for streaming
// percentile estimation.
package stats

import (
	"math"
	"sort"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/daylog/internal/journal/types"
)

// MetricSummary holds the summary statistics for one metric.
type MetricSummary struct {
	Metric string  `json:"metric"`
	Count  int64   `json:"count"`
	Sum    float64 `json:"sum"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`

	// Percentiles are DDSketch estimates, zero when percentiles are disabled.
	P50 float64 `json:"p50,omitempty"`
	P90 float64 `json:"p90,omitempty"`
	P95 float64 `json:"p95,omitempty"`
	P99 float64 `json:"p99,omitempty"`
}

// Options configures summary computation.
type Options struct {
	// Percentiles enables DDSketch percentile estimation.
	Percentiles bool
	// Accuracy is the DDSketch relative accuracy, e.g. 0.01 for 1%.
	Accuracy float64
}

// DefaultOptions returns default stats options.
func DefaultOptions() Options {
	return Options{Percentiles: true, Accuracy: 0.01}
}

// metricAccumulator maintains running statistics for a single metric.
type metricAccumulator struct {
	count  int64
	sum    float64
	min    float64
	max    float64
	sketch *ddsketch.DDSketch
}

func newAccumulator(opts Options) *metricAccumulator {
	acc := &metricAccumulator{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
	if opts.Percentiles {
		if sketch, err := ddsketch.NewDefaultDDSketch(opts.Accuracy); err == nil {
			acc.sketch = sketch
		}
	}
	return acc
}

func (a *metricAccumulator) add(value float64) {
	a.count++
	a.sum += value
	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}
	if a.sketch != nil {
		a.sketch.Add(value)
	}
}

func (a *metricAccumulator) summary(metric string) MetricSummary {
	s := MetricSummary{
		Metric: metric,
		Count:  a.count,
		Sum:    a.sum,
	}
	if a.count > 0 {
		s.Min = a.min
		s.Max = a.max
		s.Avg = a.sum / float64(a.count)
	}
	if a.sketch != nil && a.count > 0 {
		s.P50, _ = a.sketch.GetValueAtQuantile(0.50)
		s.P90, _ = a.sketch.GetValueAtQuantile(0.90)
		s.P95, _ = a.sketch.GetValueAtQuantile(0.95)
		s.P99, _ = a.sketch.GetValueAtQuantile(0.99)
	}
	return s
}

// Summarize computes per-metric summaries over the given entries, sorted by
// metric name.
func Summarize(entries []types.Entry, opts Options) []MetricSummary {
	accs := map[string]*metricAccumulator{}

	for _, e := range entries {
		for metric, value := range e.Metrics {
			acc, ok := accs[metric]
			if !ok {
				acc = newAccumulator(opts)
				accs[metric] = acc
			}
			acc.add(value)
		}
	}

	names := make([]string, 0, len(accs))
	for name := range accs {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]MetricSummary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, accs[name].summary(name))
	}
	return summaries
}

// SummarizeBucket computes summaries over a bucket's entries.
func SummarizeBucket(bucket *types.DailyBucket, opts Options) []MetricSummary {
	if bucket == nil {
		return nil
	}
	return Summarize(bucket.Entries, opts)
}
