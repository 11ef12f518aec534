package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	pipelineStartedTotal   atomic.Uint64
	pipelineCompletedTotal atomic.Uint64
	debitFailuresTotal     atomic.Uint64
	eventPublishFailures   atomic.Uint64

	pipelineFailed = newLabeledCounter()

	pipelineDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncPipelineStarted increments the started counter.
func IncPipelineStarted() {
	pipelineStartedTotal.Add(1)
}

// IncPipelineCompleted increments the completed counter.
func IncPipelineCompleted() {
	pipelineCompletedTotal.Add(1)
}

// IncPipelineFailed increments the failed counter for the given error kind.
func IncPipelineFailed(kind string) {
	pipelineFailed.Inc(kind)
}

// IncDebitFailed counts token debits that could not be applied after a completed run.
func IncDebitFailed() {
	debitFailuresTotal.Add(1)
}

// IncEventPublishFailed counts pipeline events that could not be published.
func IncEventPublishFailed() {
	eventPublishFailures.Add(1)
}

// ObservePipelineDurationMs records a run duration in milliseconds.
func ObservePipelineDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	pipelineDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "pipeline_runs_started_total", "Total pipeline runs started", pipelineStartedTotal.Load())
	writeCounter(&buf, "pipeline_runs_completed_total", "Total pipeline runs completed", pipelineCompletedTotal.Load())
	writeLabeledCounter(&buf, "pipeline_runs_failed_total", "Total pipeline runs failed by error kind", "kind", pipelineFailed.Snapshot())
	writeCounter(&buf, "pipeline_debit_failures_total", "Token debits that failed after skills were saved", debitFailuresTotal.Load())
	writeCounter(&buf, "pipeline_event_publish_failures_total", "Pipeline events that could not be published", eventPublishFailures.Load())
	writeHistogram(&buf, "pipeline_run_duration_ms", "Pipeline run duration in milliseconds", pipelineDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(label string) {
	l.mu.Lock()
	l.values[label]++
	l.mu.Unlock()
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound contains it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
