package metrics

import (
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportiq_http_requests_total",
			Help: "Total HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "supportiq_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportiq_pipeline_runs_total",
			Help: "Analysis pipeline runs by outcome",
		},
		[]string{"status"},
	)

	pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "supportiq_pipeline_duration_seconds",
			Help:    "End-to-end analysis pipeline latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	pipelineDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "supportiq_pipeline_degraded_total",
			Help: "Pipeline runs completed without deep analysis",
		},
	)

	sinkFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportiq_sink_failures_total",
			Help: "Downstream sink write failures by sink",
		},
		[]string{"sink"},
	)

	extractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "supportiq_extraction_duration_seconds",
			Help:    "LLM extraction call latency by kind",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"kind"},
	)

	extractionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportiq_extraction_failures_total",
			Help: "LLM extraction failures by kind",
		},
		[]string{"kind"},
	)

	llmTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportiq_llm_tokens_total",
			Help: "LLM tokens consumed by type",
		},
		[]string{"type"},
	)

	ticketsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportiq_tickets_created_total",
			Help: "Tickets created by priority",
		},
		[]string{"priority"},
	)

	profileUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "supportiq_profile_updates_total",
			Help: "Customer profile creates and updates",
		},
	)

	feedbackItemsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "supportiq_feedback_items_total",
			Help: "Feedback items folded into aggregates",
		},
	)

	rollupUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "supportiq_rollup_updates_total",
			Help: "Daily rollup bucket updates",
		},
	)
)

// Init registers all collectors with the default registry. Call once at
// startup.
func Init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		pipelineRunsTotal,
		pipelineDuration,
		pipelineDegradedTotal,
		sinkFailuresTotal,
		extractionDuration,
		extractionFailuresTotal,
		llmTokensTotal,
		ticketsCreatedTotal,
		profileUpdatesTotal,
		feedbackItemsTotal,
		rollupUpdatesTotal,
	)
}

// MetricsHandler exposes the Prometheus scrape endpoint as a fiber handler.
func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordPipelineRun(status string, duration time.Duration) {
	pipelineRunsTotal.WithLabelValues(status).Inc()
	pipelineDuration.Observe(duration.Seconds())
}

func RecordDegradedRun() {
	pipelineDegradedTotal.Inc()
}

func RecordSinkFailure(sink string) {
	sinkFailuresTotal.WithLabelValues(sink).Inc()
}

func RecordExtraction(kind string, duration time.Duration, err error) {
	extractionDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		extractionFailuresTotal.WithLabelValues(kind).Inc()
	}
}

func RecordTokens(promptTokens, completionTokens int) {
	llmTokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	llmTokensTotal.WithLabelValues("completion").Add(float64(completionTokens))
}

func RecordTicketCreated(priority string) {
	ticketsCreatedTotal.WithLabelValues(priority).Inc()
}

func RecordProfileUpdate() {
	profileUpdatesTotal.Inc()
}

func RecordFeedbackItems(n int) {
	feedbackItemsTotal.Add(float64(n))
}

func RecordRollupUpdate() {
	rollupUpdatesTotal.Inc()
}
