package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeService    = "service"
	OutcomeUnexpected = "unexpected"
)

var (
	requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "request_latency",
			Subsystem: "tidecast",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.2, 0.4, 0.8, 1.0, 2.0, 4.0, 8.0, 16.0, 32.0},
		},
		[]string{"verb", "path", "code"},
	)

	upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "upstream_latency",
			Subsystem: "tidecast",
			Help:      "Prediction service call latencies in seconds.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1.0, 2.0, 4.0, 8.0, 16.0, 32.0, 64.0},
		},
		[]string{"endpoint", "code"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "submissions_total",
			Subsystem: "tidecast",
			Help:      "Prediction submissions by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		requestLatency,
		upstreamLatency,
		submissions,
	)
}

func ObserveRequestLatency(verb, path, code string, latency float64) {
	requestLatency.With(prometheus.Labels{
		"code": code,
		"verb": verb,
		"path": path,
	}).Observe(latency)
}

// ObserveUpstreamLatency records one call to the prediction service. Transport
// failures are reported with code "error".
func ObserveUpstreamLatency(endpoint, code string, latency float64) {
	upstreamLatency.With(prometheus.Labels{
		"endpoint": endpoint,
		"code":     code,
	}).Observe(latency)
}

// ObserveSubmission counts a finished form submission.
func ObserveSubmission(outcome string) {
	submissions.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// LatencyHandler observes the latency of every request served by next. The
// route template is used as the path label when mux provides one, so result
// ids do not explode the label space.
func LatencyHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.Now()
		verb := r.Method
		path := ""
		if r.URL != nil {
			path = r.URL.Path
		}
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		// Defer metric observing. Any panics in next are reported as 500 errors
		// and then re-thrown.
		defer func() {
			if err := recover(); err != nil {
				ObserveRequestLatency(verb, path, "500", time.Since(t).Seconds())
				panic(err)
			}
			ObserveRequestLatency(verb, routePath(r, path), strconv.Itoa(rec.code), time.Since(t).Seconds())
		}()

		next.ServeHTTP(rec, r)
	})
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}
