package eval

// Metrics holds regression accuracy on a held-out set. All errors are in cycles.
type Metrics struct {
	// Mean absolute error, the headline number reported after training
	MAE float64 `json:"mae"`
	// Root mean square error
	RMSE float64 `json:"rmse"`
	// Coefficient of determination; 0 when the targets have no variance
	R2Score float64 `json:"r2Score"`
	// Number of rows evaluated
	Samples int `json:"samples"`
}
