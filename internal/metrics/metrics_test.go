package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("/api/events/{id}", http.MethodGet, "404"))
	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events/"+id, nil))
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("/api/events/{id}", http.MethodGet, "404"))

	if after-before != 3 {
		t.Errorf("expected 3 requests under one label, got %v", after-before)
	}
}

func TestRegistrationChanged(t *testing.T) {
	before := testutil.ToFloat64(registrations.WithLabelValues("CONFIRMED"))
	RegistrationChanged("CONFIRMED")
	if got := testutil.ToFloat64(registrations.WithLabelValues("CONFIRMED")); got != before+1 {
		t.Errorf("expected counter to increase by one, got %v -> %v", before, got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	TokenIssued("login")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "hi_events_tokens_issued_total") {
		t.Error("expected hi_events metrics in the exposition")
	}
}
