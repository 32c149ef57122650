package forecast

// Recorder receives prediction outcomes and fallback events. *metrics.Metrics
// satisfies it.
type Recorder interface {
	ObservePrediction(outcome string)
	ObserveFallback(stage string)
}

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

type nopRecorder struct{}

func (nopRecorder) ObservePrediction(string) {}
func (nopRecorder) ObserveFallback(string)   {}
