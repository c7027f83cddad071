package ingest

import "github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"

// SampleNewReadings simulates two fresh readings arriving from engine 100 (cycles 201 and 202),
// for exercising the append path without a raw file.
func SampleNewReadings() []types.SensorReading {
	return []types.SensorReading{
		types.NewSensorReading(100, 201, types.FeatureVector{
			0.002, 0.0003, 100.0,
			518.67, 643.1, 1595.2, 1415.5, 14.62, 21.61,
			552.8, 2388.1, 9065.1, 1.3, 47.6, 521.1,
			2388.11, 8138.2, 8.45, 0.03, 394, 2388,
			100.0, 38.7, 23.18,
		}),
		types.NewSensorReading(100, 202, types.FeatureVector{
			0.0021, 0.0003, 100.0,
			518.67, 643.2, 1595.8, 1416.2, 14.62, 21.61,
			552.7, 2388.12, 9068.3, 1.3, 47.65, 521.0,
			2388.13, 8139.0, 8.46, 0.03, 395, 2388,
			100.0, 38.68, 23.15,
		}),
	}
}
