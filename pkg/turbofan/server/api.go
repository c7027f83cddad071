package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/inference"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/metrics"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

const maxRequestBytes = 64 * 1024

// PredictRequest carries one feature vector, either keyed by column name or as an ordered list.
// Exactly one of the two must be set.
type PredictRequest struct {
	Features map[string]float64 `json:"features,omitempty"`
	Values   []float64          `json:"values,omitempty"`
}

// ErrorResponse is returned with every non-2xx API status
type ErrorResponse struct {
	Error string `json:"error"`
}

// Vector validates the request and returns it in common.FeatureColumns order
func (req *PredictRequest) Vector() (types.FeatureVector, error) {
	var fv types.FeatureVector
	switch {
	case req.Features != nil && req.Values != nil:
		return fv, errors.Wrap(inference.ErrInvalidInput, "set either features or values, not both")
	case req.Features != nil:
		fv, missing := types.FeatureVectorFromMap(req.Features)
		if len(missing) > 0 {
			return fv, errors.Wrapf(inference.ErrInvalidInput, "missing features: %s", strings.Join(missing, ", "))
		}
		if len(req.Features) != common.FeatureCount {
			return fv, errors.Wrapf(inference.ErrInvalidInput, "expected %d features, got %d", common.FeatureCount, len(req.Features))
		}
		return fv, nil
	case req.Values != nil:
		if len(req.Values) != common.FeatureCount {
			return fv, errors.Wrapf(inference.ErrInvalidInput, "expected %d values, got %d", common.FeatureCount, len(req.Values))
		}
		copy(fv[:], req.Values)
		return fv, nil
	default:
		return fv, errors.Wrap(inference.ErrInvalidInput, "no features given")
	}
}

func (s *Server) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		metrics.Predictions.WithLabelValues("invalid_input").Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("Failed to decode request: %v", err)})
		return
	}

	fv, err := req.Vector()
	if err != nil {
		metrics.Predictions.WithLabelValues("invalid_input").Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	prediction, err := s.predictor.Predict(r.Context(), fv)
	switch {
	case err == nil:
		metrics.Predictions.WithLabelValues("success").Inc()
		writeJSON(w, http.StatusOK, prediction)
	case errors.Is(err, inference.ErrInvalidInput):
		metrics.Predictions.WithLabelValues("invalid_input").Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, inference.ErrModelNotTrained):
		metrics.Predictions.WithLabelValues("not_trained").Inc()
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		metrics.Predictions.WithLabelValues("error").Inc()
		klog.ErrorS(err, "Prediction failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func (s *Server) handleAPIModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.predictor.Status())
}
