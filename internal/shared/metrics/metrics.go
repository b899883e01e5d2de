package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	ordersSubmittedTotal    atomic.Uint64
	processingStartedTotal  atomic.Uint64
	ordersCompletedTotal    atomic.Uint64
	ordersFailedTotal       atomic.Uint64
	staleOrdersSweptTotal   atomic.Uint64
	synthesisAttemptsTotal  atomic.Uint64
	synthesisRetriesTotal   atomic.Uint64
	reportViewsTotal        atomic.Uint64
	reportDownloadsTotal    atomic.Uint64
	queueJobsReceivedTotal  atomic.Uint64
	queueJobsCompletedTotal atomic.Uint64
	queueJobsFailedTotal    atomic.Uint64
	queueJobsDroppedTotal   atomic.Uint64
	rateLimitedTotal        atomic.Uint64

	processingDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncRateLimited counts requests rejected by the rate limiter.
func IncRateLimited() { rateLimitedTotal.Add(1) }

// IncOrdersSubmitted increments the submitted counter.
func IncOrdersSubmitted() { ordersSubmittedTotal.Add(1) }

// IncProcessingStarted increments the processing counter.
func IncProcessingStarted() { processingStartedTotal.Add(1) }

// IncOrdersCompleted increments the completed counter.
func IncOrdersCompleted() { ordersCompletedTotal.Add(1) }

// IncOrdersFailed increments the failed counter.
func IncOrdersFailed() { ordersFailedTotal.Add(1) }

// AddStaleOrdersSwept records orders failed by the stale sweep.
func AddStaleOrdersSwept(n int) {
	if n > 0 {
		staleOrdersSweptTotal.Add(uint64(n))
	}
}

// IncSynthesisAttempts counts every provider call.
func IncSynthesisAttempts() { synthesisAttemptsTotal.Add(1) }

// IncSynthesisRetries counts provider calls that were retried.
func IncSynthesisRetries() { synthesisRetriesTotal.Add(1) }

// IncReportViews increments the report view counter.
func IncReportViews() { reportViewsTotal.Add(1) }

// IncReportDownloads increments the report download counter.
func IncReportDownloads() { reportDownloadsTotal.Add(1) }

// IncQueueJobsReceived increments the worker received counter.
func IncQueueJobsReceived() { queueJobsReceivedTotal.Add(1) }

// IncQueueJobsCompleted increments the worker completed counter.
func IncQueueJobsCompleted() { queueJobsCompletedTotal.Add(1) }

// IncQueueJobsFailed increments the worker failed counter.
func IncQueueJobsFailed() { queueJobsFailedTotal.Add(1) }

// IncQueueJobsDropped counts unrecoverable messages deleted without processing.
func IncQueueJobsDropped() { queueJobsDroppedTotal.Add(1) }

// ObserveProcessingDurationMs records a processing duration in milliseconds.
func ObserveProcessingDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	processingDuration.Observe(value)
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
	writeCounter(&buf, "orders_submitted_total", "Total orders submitted", ordersSubmittedTotal.Load())
	writeCounter(&buf, "orders_processing_started_total", "Total processing runs started", processingStartedTotal.Load())
	writeCounter(&buf, "orders_completed_total", "Total orders completed", ordersCompletedTotal.Load())
	writeCounter(&buf, "orders_failed_total", "Total orders failed", ordersFailedTotal.Load())
	writeCounter(&buf, "orders_stale_swept_total", "Total processing orders failed by the stale sweep", staleOrdersSweptTotal.Load())
	writeCounter(&buf, "synthesis_attempts_total", "Total synthesis provider calls", synthesisAttemptsTotal.Load())
	writeCounter(&buf, "synthesis_retries_total", "Total synthesis retries", synthesisRetriesTotal.Load())
	writeCounter(&buf, "report_views_total", "Total report views", reportViewsTotal.Load())
	writeCounter(&buf, "report_downloads_total", "Total report downloads", reportDownloadsTotal.Load())
	writeCounter(&buf, "queue_jobs_received_total", "Total queue jobs received", queueJobsReceivedTotal.Load())
	writeCounter(&buf, "queue_jobs_completed_total", "Total queue jobs completed", queueJobsCompletedTotal.Load())
	writeCounter(&buf, "queue_jobs_failed_total", "Total queue jobs failed", queueJobsFailedTotal.Load())
	writeCounter(&buf, "queue_jobs_dropped_total", "Total unrecoverable queue jobs dropped", queueJobsDroppedTotal.Load())
	writeCounter(&buf, "http_rate_limited_total", "Total requests rejected by the rate limiter", rateLimitedTotal.Load())
	writeHistogram(&buf, "order_processing_duration_ms", "Order processing duration in milliseconds", processingDuration.Snapshot())
	return buf.String()
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

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	// Observe already counts a value into every bucket it fits, so counts are cumulative.
	for i, bound := range snap.buckets {
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), snap.counts[i])
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
