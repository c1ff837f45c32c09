package middleware

import (
	"net/http"
	"strings"
	"sync/atomic"
)

// MetricsCollector counts requests, error responses and open chat streams.
type MetricsCollector struct {
	requestCount *atomic.Int64
	errorCount   *atomic.Int64
	openStreams  *atomic.Int64
}

// NewMetricsCollector creates a collector over the App counters.
func NewMetricsCollector(requestCount, errorCount, openStreams *atomic.Int64) *MetricsCollector {
	return &MetricsCollector{
		requestCount: requestCount,
		errorCount:   errorCount,
		openStreams:  openStreams,
	}
}

// Middleware counts requests, error responses and in-flight chat streams.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requestCount.Add(1)
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/chat") && mc.openStreams != nil {
			mc.openStreams.Add(1)
			defer mc.openStreams.Add(-1)
		}

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errorCount.Add(1)
		}
	})
}
