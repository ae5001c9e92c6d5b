package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// NewRouter registers the API routes. /metrics serves gatherer when it is not nil.
func NewRouter(h *Handlers, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	// Routes stay on r: a subrouter would answer a wrong method with the NotFoundHandler.
	r.HandleFunc("/api/weather", h.Weather).Methods(http.MethodGet)
	r.HandleFunc("/api/weather/stats", h.WeatherStats).Methods(http.MethodGet)
	r.HandleFunc("/api/yield", h.Yield).Methods(http.MethodGet)

	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

// Wrap adds access logging, gzip compression and panic recovery around h.
func Wrap(h http.Handler) http.Handler {
	h = handlers.CompressHandler(h)
	h = handlers.CustomLoggingHandler(accessLog{}, h, func(w io.Writer, p handlers.LogFormatterParams) {
		fmt.Fprintf(w, "%s %s %d %dB\n", p.Request.Method, p.URL.RequestURI(), p.StatusCode, p.Size)
	})
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLog{}), handlers.PrintRecoveryStack(true))(h)
}

type accessLog struct{}

func (accessLog) Write(p []byte) (int, error) {
	logger.Infof("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

type recoveryLog struct{}

func (recoveryLog) Println(v ...interface{}) {
	logger.Errorf("HTTP handler panic: %s", strings.TrimSpace(fmt.Sprintln(v...)))
}
