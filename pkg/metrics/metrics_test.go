package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLatencyHandlerUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(LatencyHandler)
	r.HandleFunc("/results/{id}/plot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.CollectAndCount(requestLatency)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/results/abc/plot", nil))
	r.ServeHTTP(w, httptest.NewRequest("GET", "/results/def/plot", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("got code %d", w.Code)
	}
	// Both requests land in the same series.
	if got := testutil.CollectAndCount(requestLatency); got != before+1 {
		t.Errorf("got %d series, want %d", got, before+1)
	}
}

func TestObserveSubmission(t *testing.T) {
	before := testutil.ToFloat64(submissions.WithLabelValues(OutcomeService))
	ObserveSubmission(OutcomeService)
	if got := testutil.ToFloat64(submissions.WithLabelValues(OutcomeService)); got != before+1 {
		t.Errorf("got %v, want %v", got, before+1)
	}
}
