package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/inference"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/metrics"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

const notTrainedMessage = "The model file was not found. Train the model first by running rulctl train."

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Remaining Useful Life Prediction</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.groups { display: flex; gap: 2em; flex-wrap: wrap; }
fieldset { border: 1px solid #ccc; padding: 1em; }
label { display: block; margin-top: .5em; }
.result { font-size: 2em; margin-top: 1em; }
.error { color: #b00020; margin-top: 1em; }
.note { color: #555; }
</style>
</head>
<body>
<h1>Remaining Useful Life (RUL) Prediction</h1>
<p>Enter an engine's sensor readings to predict its remaining useful life. Inputs start at the dataset averages.</p>
{{if .Strategy}}<p class="note">Model evaluated with the {{.Strategy}} split.</p>{{end}}
<form method="post" action="/predict">
<div class="groups">
{{range .Groups}}<fieldset>
<legend>{{.Name}}</legend>
{{range .Fields}}<label>{{.Label}}
<input type="number" name="{{.Name}}" min="{{.Min}}" max="{{.Max}}" step="{{.Step}}" value="{{.Value}}" required>
</label>
{{end}}</fieldset>
{{end}}</div>
<p><button type="submit">Predict remaining useful life</button></p>
</form>
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
{{if .HasResult}}<h2>Prediction</h2>
<div class="result">Estimated RUL: {{.Cycles}} cycles remaining</div>{{end}}
</body>
</html>
`))

type formField struct {
	Name  string
	Label string
	Min   string
	Max   string
	Step  string
	Value string
}

type formGroup struct {
	Name   string
	Fields []formField
}

type formPage struct {
	Groups    []formGroup
	Strategy  string
	Error     string
	HasResult bool
	Cycles    int
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func newFormPage(values map[string]string, strategy string) *formPage {
	page := &formPage{Strategy: strategy}
	byGroup := make(map[string]*formGroup)
	for _, name := range common.FeatureGroups {
		page.Groups = append(page.Groups, formGroup{Name: name})
	}
	for i := range page.Groups {
		byGroup[page.Groups[i].Name] = &page.Groups[i]
	}

	for _, spec := range common.FeatureSpecs {
		value, ok := values[spec.Name]
		if !ok {
			value = formatFloat(spec.Default)
		}
		g := byGroup[spec.Group]
		g.Fields = append(g.Fields, formField{
			Name:  spec.Name,
			Label: spec.Label,
			Min:   formatFloat(spec.Min),
			Max:   formatFloat(spec.Max),
			Step:  formatFloat(spec.Step),
			Value: value,
		})
	}
	return page
}

func (s *Server) renderForm(w http.ResponseWriter, status int, page *formPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, page); err != nil {
		klog.ErrorS(err, "Failed to render form")
	}
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, http.StatusOK, newFormPage(nil, s.predictor.Status().Strategy))
}

// parseFormVector reads all feature inputs and enforces the form bounds
func parseFormVector(r *http.Request) (types.FeatureVector, map[string]string, error) {
	var fv types.FeatureVector
	raw := make(map[string]string, common.FeatureCount)
	if err := r.ParseForm(); err != nil {
		return fv, raw, errors.Wrap(inference.ErrInvalidInput, "could not read the form")
	}

	for i, name := range common.FeatureColumns {
		value := r.PostForm.Get(name)
		if value == "" {
			return fv, raw, errors.Wrapf(inference.ErrInvalidInput, "%s is required", common.FeatureSpecs[i].Label)
		}
		raw[name] = value

		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fv, raw, errors.Wrapf(inference.ErrInvalidInput, "%s must be a number", common.FeatureSpecs[i].Label)
		}
		if err := common.CheckBounds(i, v); err != nil {
			return fv, raw, errors.Wrap(inference.ErrInvalidInput, err.Error())
		}
		fv[i] = v
	}
	return fv, raw, nil
}

func (s *Server) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	fv, raw, err := parseFormVector(r)
	if err != nil {
		metrics.Predictions.WithLabelValues("invalid_input").Inc()
		page := newFormPage(raw, s.predictor.Status().Strategy)
		page.Error = err.Error()
		s.renderForm(w, http.StatusBadRequest, page)
		return
	}

	prediction, err := s.predictor.Predict(r.Context(), fv)
	page := newFormPage(raw, prediction.Strategy)
	switch {
	case err == nil:
		metrics.Predictions.WithLabelValues("success").Inc()
		page.HasResult = true
		page.Cycles = prediction.Cycles
		s.renderForm(w, http.StatusOK, page)
	case errors.Is(err, inference.ErrInvalidInput):
		metrics.Predictions.WithLabelValues("invalid_input").Inc()
		page.Error = err.Error()
		s.renderForm(w, http.StatusBadRequest, page)
	case errors.Is(err, inference.ErrModelNotTrained):
		metrics.Predictions.WithLabelValues("not_trained").Inc()
		page.Error = notTrainedMessage
		s.renderForm(w, http.StatusServiceUnavailable, page)
	default:
		metrics.Predictions.WithLabelValues("error").Inc()
		klog.ErrorS(err, "Prediction failed")
		page.Error = fmt.Sprintf("Prediction failed: %v", err)
		s.renderForm(w, http.StatusInternalServerError, page)
	}
}
