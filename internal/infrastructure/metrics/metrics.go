package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Designs
	DesignsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architect_designs_submitted_total",
			Help: "Design requests submitted, by style",
		},
		[]string{"style"},
	)
	DesignOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architect_design_outcomes_total",
			Help: "Design results by outcome",
		},
		[]string{"outcome"}, // generated|discarded|disabled|remote_failed
	)
	FootprintArea = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "architect_footprint_area_sqft",
			Help:    "Footprint area of submitted designs",
			Buckets: prometheus.ExponentialBuckets(250, 2, 8), // 250..32000 sq ft
		},
	)

	// LLM
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architect_llm_requests_total",
			Help: "Number of LLM requests by provider/model",
		},
		[]string{"provider", "model"},
	)
	LLMDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "architect_llm_duration_seconds",
			Help:    "Duration of LLM requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "result"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architect_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		// Designs
		DesignsSubmitted,
		DesignOutcomes,
		FootprintArea,
		// LLM
		LLMRequests,
		LLMDurationSeconds,
		// Errors
		Errors,
	)
}

// NewServer serves the default registry on addr.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Designs
func IncDesignSubmitted(style string) {
	DesignsSubmitted.WithLabelValues(style).Inc()
}

func IncDesignOutcome(outcome string) {
	DesignOutcomes.WithLabelValues(outcome).Inc()
}

func ObserveFootprint(area float64) {
	FootprintArea.Observe(area)
}

// LLM
func IncLLMRequest(provider, model string) {
	LLMRequests.WithLabelValues(provider, model).Inc()
}

func ObserveLLMDuration(provider, result string, d time.Duration) {
	LLMDurationSeconds.WithLabelValues(provider, result).Observe(d.Seconds())
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
