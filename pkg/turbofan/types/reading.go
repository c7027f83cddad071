package types

import (
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
)

// FeatureVector holds the model inputs in common.FeatureColumns order
type FeatureVector [common.FeatureCount]float64

// SensorReading is one row of telemetry for an engine unit at one cycle
type SensorReading struct {
	UnitNumber   int     `db:"unit_number" csv:"unit_number" json:"unit_number"`
	TimeInCycles int     `db:"time_in_cycles" csv:"time_in_cycles" json:"time_in_cycles"`
	OpSetting1   float64 `db:"op_setting_1" csv:"op_setting_1" json:"op_setting_1"`
	OpSetting2   float64 `db:"op_setting_2" csv:"op_setting_2" json:"op_setting_2"`
	OpSetting3   float64 `db:"op_setting_3" csv:"op_setting_3" json:"op_setting_3"`
	Sensor1      float64 `db:"sensor_1" csv:"sensor_1" json:"sensor_1"`
	Sensor2      float64 `db:"sensor_2" csv:"sensor_2" json:"sensor_2"`
	Sensor3      float64 `db:"sensor_3" csv:"sensor_3" json:"sensor_3"`
	Sensor4      float64 `db:"sensor_4" csv:"sensor_4" json:"sensor_4"`
	Sensor5      float64 `db:"sensor_5" csv:"sensor_5" json:"sensor_5"`
	Sensor6      float64 `db:"sensor_6" csv:"sensor_6" json:"sensor_6"`
	Sensor7      float64 `db:"sensor_7" csv:"sensor_7" json:"sensor_7"`
	Sensor8      float64 `db:"sensor_8" csv:"sensor_8" json:"sensor_8"`
	Sensor9      float64 `db:"sensor_9" csv:"sensor_9" json:"sensor_9"`
	Sensor10     float64 `db:"sensor_10" csv:"sensor_10" json:"sensor_10"`
	Sensor11     float64 `db:"sensor_11" csv:"sensor_11" json:"sensor_11"`
	Sensor12     float64 `db:"sensor_12" csv:"sensor_12" json:"sensor_12"`
	Sensor13     float64 `db:"sensor_13" csv:"sensor_13" json:"sensor_13"`
	Sensor14     float64 `db:"sensor_14" csv:"sensor_14" json:"sensor_14"`
	Sensor15     float64 `db:"sensor_15" csv:"sensor_15" json:"sensor_15"`
	Sensor16     float64 `db:"sensor_16" csv:"sensor_16" json:"sensor_16"`
	Sensor17     float64 `db:"sensor_17" csv:"sensor_17" json:"sensor_17"`
	Sensor18     float64 `db:"sensor_18" csv:"sensor_18" json:"sensor_18"`
	Sensor19     float64 `db:"sensor_19" csv:"sensor_19" json:"sensor_19"`
	Sensor20     float64 `db:"sensor_20" csv:"sensor_20" json:"sensor_20"`
	Sensor21     float64 `db:"sensor_21" csv:"sensor_21" json:"sensor_21"`
}

// LabeledReading is a SensorReading with its remaining useful life in cycles
type LabeledReading struct {
	SensorReading
	RUL int `db:"rul" csv:"rul" json:"rul"`
}

// NewSensorReading builds a reading from its identifiers and a feature vector
func NewSensorReading(unit, cycle int, features FeatureVector) SensorReading {
	r := SensorReading{UnitNumber: unit, TimeInCycles: cycle}
	r.SetFeatures(features)
	return r
}

func (r *SensorReading) featureFields() [common.FeatureCount]*float64 {
	return [common.FeatureCount]*float64{
		&r.OpSetting1, &r.OpSetting2, &r.OpSetting3,
		&r.Sensor1, &r.Sensor2, &r.Sensor3, &r.Sensor4, &r.Sensor5, &r.Sensor6,
		&r.Sensor7, &r.Sensor8, &r.Sensor9, &r.Sensor10, &r.Sensor11, &r.Sensor12,
		&r.Sensor13, &r.Sensor14, &r.Sensor15, &r.Sensor16, &r.Sensor17, &r.Sensor18,
		&r.Sensor19, &r.Sensor20, &r.Sensor21,
	}
}

// Features returns the reading's feature vector, excluding unit, cycle and label
func (r SensorReading) Features() FeatureVector {
	var fv FeatureVector
	for i, p := range r.featureFields() {
		fv[i] = *p
	}
	return fv
}

// SetFeatures overwrites all feature fields
func (r *SensorReading) SetFeatures(fv FeatureVector) {
	for i, p := range r.featureFields() {
		*p = fv[i]
	}
}

// Slice returns the vector as a slice sharing no memory with fv
func (fv FeatureVector) Slice() []float64 {
	out := make([]float64, len(fv))
	copy(out, fv[:])
	return out
}

// FeatureVectorFromMap builds a vector from column name to value.
// Every feature column must be present.
func FeatureVectorFromMap(values map[string]float64) (FeatureVector, []string) {
	var fv FeatureVector
	var missing []string
	for i, name := range common.FeatureColumns {
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		fv[i] = v
	}
	return fv, missing
}

// Map returns the vector keyed by column name
func (fv FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(fv))
	for i, name := range common.FeatureColumns {
		out[name] = fv[i]
	}
	return out
}

// DefaultFeatureVector returns the form defaults
func DefaultFeatureVector() FeatureVector {
	var fv FeatureVector
	for i, spec := range common.FeatureSpecs {
		fv[i] = spec.Default
	}
	return fv
}
