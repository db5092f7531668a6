package api

// FitInput is the master→worker fit body: two column-major tables
// described by normalized column names and row vectors of scalars.
// Sorted distinguishes the parameter-server variant (which additionally
// sorts column names) from the ensemble variant (lowercase+trim only);
// it is set by the caller before Normalize is invoked and is not itself
// part of the wire format.
type FitInput struct {
	XTrainColumns []string `json:"X_train_columns"`
	XTrainRows    [][]any  `json:"X_train_rows"`
	YTrainColumns []string `json:"y_train_columns"`
	YTrainRows    [][]any  `json:"y_train_rows"`
	Sorted        bool     `json:"-"`
}

// Normalize lowercases/trims (and, if Sorted, sorts) the column name lists
// in place.
func (f *FitInput) Normalize() {
	f.XTrainColumns = NormalizeColumns(f.XTrainColumns, f.Sorted)
	f.YTrainColumns = NormalizeColumns(f.YTrainColumns, f.Sorted)
}

// Validate enforces the row-count agreement invariant between X and y.
func (f *FitInput) Validate() error {
	if len(f.XTrainRows) != len(f.YTrainRows) {
		return NewValidationError("X_train_rows and y_train_rows must have the same length")
	}
	return nil
}

// X returns the training features as a Frame.
func (f *FitInput) X() Frame {
	return Frame{Columns: f.XTrainColumns, Rows: f.XTrainRows}
}

// Y returns the training labels as a Frame.
func (f *FitInput) Y() Frame {
	return Frame{Columns: f.YTrainColumns, Rows: f.YTrainRows}
}

// PredictInput is the body of every predict-family request.
type PredictInput struct {
	XPredColumns []string `json:"X_pred_columns"`
	XPredRows    [][]any  `json:"X_pred_rows"`
}

// Normalize lowercases/trims the prediction column names in place.
func (p *PredictInput) Normalize() {
	p.XPredColumns = NormalizeColumns(p.XPredColumns, false)
}

// X returns the prediction features as a Frame.
func (p *PredictInput) X() Frame {
	return Frame{Columns: p.XPredColumns, Rows: p.XPredRows}
}

// PredictOutput carries one prediction per input row: a float64 for
// regressors, or a []float64 of class probabilities for classifiers.
type PredictOutput struct {
	YPredRows []any `json:"y_pred_rows"`
}

// FitOutput is the success body for every fit-family endpoint.
type FitOutput struct {
	Fit string `json:"fit"`
}

// OK builds the canonical {"fit":"ok"} response.
func OK() FitOutput {
	return FitOutput{Fit: "ok"}
}

// FitStepInput carries the parameter server's current parameters out to a
// worker at the start of one BSP round. Weights and Bias are deep copies;
// the master's own learner is never mutated while this is in flight.
type FitStepInput struct {
	Weights []float64 `json:"weights"`
	Bias    []float64 `json:"bias"`
}

// FitStepOutput carries a worker's parameter delta for one round:
// old minus new, so the master can average gradients rather than weights.
type FitStepOutput struct {
	WeightsGradients []float64 `json:"weights_gradients"`
	BiasGradient     []float64 `json:"bias_gradient"`
}

// FitRequestDataSampleOutput is a small labeled sample a worker hands back
// so the master can seed its learner's coefficient shape.
type FitRequestDataSampleOutput struct {
	XTrainSampleColumns []string `json:"X_train_sample_columns"`
	XTrainSampleRows    [][]any  `json:"X_train_sample_rows"`
	YTrainSampleColumns []string `json:"y_train_sample_columns"`
	YTrainSampleRows    [][]any  `json:"y_train_sample_rows"`
}

// AsFitInput converts a data sample into a FitInput suitable for a single
// partial_fit seeding call.
func (s *FitRequestDataSampleOutput) AsFitInput() FitInput {
	return FitInput{
		XTrainColumns: s.XTrainSampleColumns,
		XTrainRows:    s.XTrainSampleRows,
		YTrainColumns: s.YTrainSampleColumns,
		YTrainRows:    s.YTrainSampleRows,
	}
}
