package http

import (
	"log"
	"net/http"
	"time"

	"github.com/Pynex/Marketplace/internal/domain"
)

// callerHeader carries the authenticated caller identity. The surrounding
// environment is trusted to have authenticated it.
const callerHeader = "X-Caller-Address"

func callerAddress(r *http.Request) domain.Address {
	return domain.Address(r.Header.Get(callerHeader))
}

// RequestLogger logs basic request details and latency.
func RequestLogger(next http.Handler, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Printf(
			"request method=%s path=%s status=%d duration=%s",
			r.Method,
			r.URL.Path,
			rec.status,
			time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
