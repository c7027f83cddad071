// Package server exposes the inference service over HTTP: an HTML form for one-off predictions,
// a JSON API, health probes and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/inference"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

// Predictor is the part of inference.Service the handlers use
type Predictor interface {
	Load() error
	Predict(ctx context.Context, fv types.FeatureVector) (inference.Prediction, error)
	Status() inference.Status
}

// Options controls which routes are mounted
type Options struct {
	MetricsEnabled bool
}

// Server routes HTTP requests to a Predictor
type Server struct {
	predictor Predictor
	opts      Options
}

// New creates a server for predictor
func New(predictor Predictor, opts Options) *Server {
	return &Server{
		predictor: predictor,
		opts:      opts,
	}
}

// Handler returns the routed handler with request logging and panic recovery
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)

	router.HandleFunc("/", s.handleForm).Methods(http.MethodGet)
	router.HandleFunc("/predict", s.handleFormPredict).Methods(http.MethodPost)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/predict", s.handleAPIPredict).Methods(http.MethodPost)
	api.HandleFunc("/model", s.handleAPIModel).Methods(http.MethodGet)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	if s.opts.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))
	return handlers.CombinedLoggingHandler(accessLog{}, recovery(router))
}

// handleReady reports ready once a model is loaded. A model trained after startup makes the
// server ready without a restart.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.predictor.Load(); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// accessLog sends combined-format access lines to klog at verbosity 2
type accessLog struct{}

func (accessLog) Write(p []byte) (int, error) {
	klog.V(2).InfoS("HTTP request", "access", strings.TrimSpace(string(p)))
	return len(p), nil
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	klog.ErrorS(nil, "Recovered from panic in HTTP handler", "panic", v)
}
