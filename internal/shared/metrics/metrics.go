package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported by this service.
var Registry = prometheus.NewRegistry()

var (
	analysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_transitions_total",
		Help: "Analysis state transitions by target status",
	}, []string{"status"})

	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_ms",
		Help:    "Analysis duration in milliseconds",
		Buckets: []float64{1000, 5000, 15000, 60000, 300000, 900000, 3600000},
	})

	callsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_calls_processed_total",
		Help: "Calls processed inside analyses by outcome",
	}, []string{"outcome"})

	transcriptCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_cache_total",
		Help: "Transcript lookups by result (hit, miss, forced)",
	}, []string{"result"})

	externalDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "external_call_duration_ms",
		Help:    "Duration of external engine calls in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 180000},
	}, []string{"engine", "outcome"})

	workerJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_jobs_total",
		Help: "Queue jobs handled by the worker by outcome",
	}, []string{"outcome"})

	staleFlagged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_stale_flagged_total",
		Help: "Analyses transitioned to error by the reconciler",
	})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds by route and status class",
		Buckets: []float64{5, 25, 100, 250, 1000, 5000, 30000},
	}, []string{"method", "route", "class"})

	httpRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_rejected_total",
		Help: "Requests rejected before reaching a handler (rate_limited, panic)",
	}, []string{"reason", "group"})
)

func init() {
	Registry.MustRegister(
		analysesTotal,
		analysisDuration,
		callsProcessed,
		transcriptCache,
		externalDuration,
		workerJobs,
		staleFlagged,
		httpDuration,
		httpRejected,
	)
}

// IncAnalysisStarted increments the running transition counter.
func IncAnalysisStarted() { analysesTotal.WithLabelValues("running").Inc() }

// IncAnalysisCompleted increments the completed transition counter.
func IncAnalysisCompleted() { analysesTotal.WithLabelValues("completed").Inc() }

// IncAnalysisFailed increments the error transition counter.
func IncAnalysisFailed() { analysesTotal.WithLabelValues("error").Inc() }

// ObserveAnalysisDuration records how long a batch ran.
func ObserveAnalysisDuration(d time.Duration) {
	analysisDuration.Observe(float64(d.Milliseconds()))
}

// IncCallProcessed counts one per-call outcome ("ok", "parse_error", "failed").
func IncCallProcessed(outcome string) { callsProcessed.WithLabelValues(outcome).Inc() }

// IncTranscriptCache counts a transcript lookup.
func IncTranscriptCache(result string) { transcriptCache.WithLabelValues(result).Inc() }

// ObserveExternalCall records an external engine call.
func ObserveExternalCall(engine string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	externalDuration.WithLabelValues(engine, outcome).Observe(float64(d.Milliseconds()))
}

func IncAnalysisJobsReceived()             { workerJobs.WithLabelValues("received").Inc() }
func IncAnalysisJobsCompleted()            { workerJobs.WithLabelValues("completed").Inc() }
func IncAnalysisJobsFailed()               { workerJobs.WithLabelValues("failed").Inc() }
func IncAnalysisJobsDeletedUnrecoverable() { workerJobs.WithLabelValues("deleted_unrecoverable").Inc() }
func IncStaleAnalysesFlagged(n int)        { staleFlagged.Add(float64(n)) }

// ObserveHTTPRequest records one served request. route is the gin route template.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	class := strconv.Itoa(status/100) + "xx"
	httpDuration.WithLabelValues(method, route, class).Observe(float64(d.Microseconds()) / 1000.0)
}

// IncHTTPRejected counts a request refused by middleware.
func IncHTTPRejected(reason, group string) { httpRejected.WithLabelValues(reason, group).Inc() }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
