package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

func (s *Server) initMetrics() {
	s.metricsOnce.Do(func() {
		s.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "limited",
			Subsystem: "web",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		s.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "limited",
			Subsystem: "web",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})

		s.investResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "limited",
			Subsystem: "web",
			Name:      "investment_results_total",
			Help:      "Number of investment submission outcomes",
		}, []string{"outcome"})

		collectors := []prometheus.Collector{s.requestTotal, s.requestDuration, s.investResults}
		for _, collector := range collectors {
			if err := prometheus.Register(collector); err != nil {
				if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
					switch existing := already.ExistingCollector.(type) {
					case *prometheus.CounterVec:
						if collector == s.requestTotal {
							s.requestTotal = existing
						} else {
							s.investResults = existing
						}
					case *prometheus.HistogramVec:
						s.requestDuration = existing
					}
				}
			}
		}
		s.metricsReady = true
	})
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !s.metricsReady {
			next(w, req)
			return
		}
		recorder := &responseRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)
		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{
			"method": req.Method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		s.requestTotal.With(labels).Inc()
		s.requestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) recordInvestResult(outcome string) {
	if !s.metricsReady {
		return
	}
	s.investResults.With(prometheus.Labels{"outcome": outcome}).Inc()
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	return rr.ResponseWriter.Write(b)
}
