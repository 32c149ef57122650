package forecast

import "errors"

// ErrPredictionFailed is the single failure callers of PredictDemand observe.
var ErrPredictionFailed = errors.New("failed to predict inventory demand")

// PredictionError reports that a prediction could not be produced. Its message
// never includes the underlying cause; use Cause for logging.
type PredictionError struct {
	ProductID string
	cause     error
}

func newPredictionError(productID string, cause error) *PredictionError {
	return &PredictionError{ProductID: productID, cause: cause}
}

func (e *PredictionError) Error() string {
	return ErrPredictionFailed.Error()
}

// Is makes errors.Is(err, ErrPredictionFailed) hold.
func (e *PredictionError) Is(target error) bool {
	return target == ErrPredictionFailed
}

// Cause returns the internal error that aborted the prediction.
func (e *PredictionError) Cause() error {
	return e.cause
}
