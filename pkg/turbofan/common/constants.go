package common

// Column and table names shared by ingestion, the store, the CSV hand-off and the model artifact
const (
	// TableName is the relational table holding raw sensor readings
	TableName = "turbofan_data"

	ColumnUnitNumber   = "unit_number"
	ColumnTimeInCycles = "time_in_cycles"
	ColumnRUL          = "rul"

	// RawColumnCount is the number of fields in one line of the raw sensor log
	RawColumnCount = 2 + FeatureCount

	// FeatureCount is the length of a feature vector: 3 operational settings and 21 sensors
	FeatureCount = 24
)

// FeatureColumns is the fixed feature ordering a trained model expects.
// Consumers must supply values in exactly this order.
var FeatureColumns = [FeatureCount]string{
	"op_setting_1", "op_setting_2", "op_setting_3",
	"sensor_1", "sensor_2", "sensor_3", "sensor_4", "sensor_5", "sensor_6",
	"sensor_7", "sensor_8", "sensor_9", "sensor_10", "sensor_11", "sensor_12",
	"sensor_13", "sensor_14", "sensor_15", "sensor_16", "sensor_17", "sensor_18",
	"sensor_19", "sensor_20", "sensor_21",
}

// RawColumns is the column order of the raw sensor log and of the relational table
func RawColumns() []string {
	cols := make([]string, 0, RawColumnCount)
	cols = append(cols, ColumnUnitNumber, ColumnTimeInCycles)
	cols = append(cols, FeatureColumns[:]...)
	return cols
}

// LabeledColumns is RawColumns followed by the rul target
func LabeledColumns() []string {
	return append(RawColumns(), ColumnRUL)
}

// Split strategy names
const (
	StrategyUnitHoldout = "unit-holdout"
	StrategyRowRandom   = "row-random"
)

// Ingestion modes
const (
	ModeReplace = "replace"
	ModeAppend  = "append"
)
