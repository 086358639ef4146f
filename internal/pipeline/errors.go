package pipeline

import (
	"errors"

	"sigrank/internal/signal"
)

// StageError records which stage of a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Stage
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Outcome labels a finished run for metrics and run history.
func Outcome(res Result, err error) string {
	if err == nil {
		if res.Empty {
			return "empty"
		}
		return "ok"
	}
	var anomaly *signal.AnomalyError
	if errors.As(err, &anomaly) {
		return "anomaly"
	}
	var input *signal.InputError
	if errors.As(err, &input) {
		return "rejected"
	}
	return "failed"
}
