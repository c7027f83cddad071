package common

import (
	"fmt"
	"math"
)

// FeatureSpec describes one bounded input of the prediction form.
// Bounds and defaults come from the FD001 training statistics.
type FeatureSpec struct {
	Name    string
	Label   string
	Group   string
	Min     float64
	Max     float64
	Default float64
	Step    float64
}

// Form groups, in display order
const (
	GroupOperational = "Operational"
	GroupSensors1    = "Sensors 1-5"
	GroupSensors2    = "Sensors 6-11"
	GroupSensors3    = "Sensors 12-16"
	GroupSensors4    = "Sensors 17-21"
)

// FeatureGroups lists the form groups in display order
var FeatureGroups = []string{GroupOperational, GroupSensors1, GroupSensors2, GroupSensors3, GroupSensors4}

// FeatureSpecs is indexed like FeatureColumns
var FeatureSpecs = [FeatureCount]FeatureSpec{
	{Name: "op_setting_1", Label: "Setting 1", Group: GroupOperational, Min: -0.005, Max: 0.005, Default: 0.0, Step: 0.0001},
	{Name: "op_setting_2", Label: "Setting 2", Group: GroupOperational, Min: -0.0005, Max: 0.0005, Default: 0.0, Step: 0.0001},
	{Name: "op_setting_3", Label: "Setting 3", Group: GroupOperational, Min: 95.0, Max: 105.0, Default: 100.0, Step: 0.01},
	{Name: "sensor_1", Label: "Sensor 1", Group: GroupSensors1, Min: 470.0, Max: 520.0, Default: 518.67, Step: 0.01},
	{Name: "sensor_2", Label: "Sensor 2", Group: GroupSensors1, Min: 530.0, Max: 650.0, Default: 642.68, Step: 0.01},
	{Name: "sensor_3", Label: "Sensor 3", Group: GroupSensors1, Min: 1300.0, Max: 1620.0, Default: 1590.52, Step: 0.01},
	{Name: "sensor_4", Label: "Sensor 4", Group: GroupSensors1, Min: 1100.0, Max: 1450.0, Default: 1408.93, Step: 0.01},
	{Name: "sensor_5", Label: "Sensor 5", Group: GroupSensors1, Min: 9.0, Max: 15.0, Default: 14.62, Step: 0.01},
	{Name: "sensor_6", Label: "Sensor 6", Group: GroupSensors2, Min: 5.0, Max: 25.0, Default: 21.61, Step: 0.01},
	{Name: "sensor_7", Label: "Sensor 7", Group: GroupSensors2, Min: 130.0, Max: 600.0, Default: 553.36, Step: 0.01},
	{Name: "sensor_8", Label: "Sensor 8", Group: GroupSensors2, Min: 2000.0, Max: 2400.0, Default: 2388.09, Step: 0.01},
	{Name: "sensor_9", Label: "Sensor 9", Group: GroupSensors2, Min: 8300.0, Max: 9250.0, Default: 9054.42, Step: 0.01},
	{Name: "sensor_10", Label: "Sensor 10", Group: GroupSensors2, Min: 1.0, Max: 2.0, Default: 1.3, Step: 0.01},
	{Name: "sensor_11", Label: "Sensor 11", Group: GroupSensors2, Min: 36.0, Max: 50.0, Default: 47.54, Step: 0.01},
	{Name: "sensor_12", Label: "Sensor 12", Group: GroupSensors3, Min: 120.0, Max: 530.0, Default: 521.72, Step: 0.01},
	{Name: "sensor_13", Label: "Sensor 13", Group: GroupSensors3, Min: 2380.0, Max: 2395.0, Default: 2388.09, Step: 0.01},
	{Name: "sensor_14", Label: "Sensor 14", Group: GroupSensors3, Min: 8100.0, Max: 8250.0, Default: 8143.75, Step: 0.01},
	{Name: "sensor_15", Label: "Sensor 15", Group: GroupSensors3, Min: 8.0, Max: 9.5, Default: 8.44, Step: 0.01},
	{Name: "sensor_16", Label: "Sensor 16", Group: GroupSensors3, Min: 0.01, Max: 0.05, Default: 0.03, Step: 0.01},
	{Name: "sensor_17", Label: "Sensor 17", Group: GroupSensors4, Min: 300.0, Max: 400.0, Default: 393.21, Step: 0.01},
	{Name: "sensor_18", Label: "Sensor 18", Group: GroupSensors4, Min: 2380.0, Max: 2395.0, Default: 2388.0, Step: 0.01},
	{Name: "sensor_19", Label: "Sensor 19", Group: GroupSensors4, Min: 98.0, Max: 102.0, Default: 100.0, Step: 0.01},
	{Name: "sensor_20", Label: "Sensor 20", Group: GroupSensors4, Min: 10.0, Max: 40.0, Default: 38.81, Step: 0.01},
	{Name: "sensor_21", Label: "Sensor 21", Group: GroupSensors4, Min: 23.0, Max: 24.0, Default: 23.28, Step: 0.01},
}

// CheckBounds reports whether v lies within the documented range of feature i
func CheckBounds(i int, v float64) error {
	spec := FeatureSpecs[i]
	if math.IsNaN(v) || v < spec.Min || v > spec.Max {
		return fmt.Errorf("%s=%g outside [%g, %g]", spec.Name, v, spec.Min, spec.Max)
	}
	return nil
}
