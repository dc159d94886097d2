package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/Sumit771/1-2-1/pkg/log"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Logging attaches a request-scoped logger to the context and logs every
// request once it has been served. Panics are recovered into a 500.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		base := log.L()
		logger := base.With().Str("request_id", uuid.NewString()).Logger()
		ctx := log.WithLogger(r.Context(), logger)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				logger.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("panic while serving request")
				writeError(rec, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
			}
			logger.Info().
				Str(log.FieldMethod, r.Method).
				Str(log.FieldPath, r.URL.Path).
				Int(log.FieldStatus, rec.status).
				Dur(log.FieldLatency, time.Since(start)).
				Str(log.FieldClientIP, ClientIP(r)).
				Msg("request")
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}
