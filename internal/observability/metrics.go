package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deeplink_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "deeplink_http_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "deeplink_http_in_flight",
		Help: "In-flight HTTP requests",
	})
	Derivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deeplink_derivations_total",
			Help: "Link derivations by kind",
		}, []string{"kind"},
	)
	DerivationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deeplink_derivation_errors_total",
			Help: "Rejected link derivations by kind",
		}, []string{"kind"},
	)
	RedirectPlans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deeplink_redirect_plans_total",
			Help: "Landing page redirects by platform and first target",
		}, []string{"platform", "target"},
	)
	RegistryTenants = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "deeplink_registry_tenants",
		Help: "Tenants in the current configuration snapshot",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, Derivations, DerivationErrors, RedirectPlans, RegistryTenants)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

// ObserveDerivation counts one derivation of kind and its outcome.
func ObserveDerivation(kind string, err error) {
	if err != nil {
		DerivationErrors.WithLabelValues(kind).Inc()
		return
	}
	Derivations.WithLabelValues(kind).Inc()
}

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
