package signal

import (
	"errors"
	"fmt"
)

// ErrEmptyCohort marks a run in which no miner passed filtering. It is informational:
// the ranked list is empty and every tracked asset defaults to zero depth.
var ErrEmptyCohort = errors.New("no miners passed filtering")

// InputError reports a malformed record. When MinerID is set the error is isolated
// to that miner; otherwise the whole snapshot is unusable.
type InputError struct {
	MinerID string
	Field   string
	Reason  string
}

func (e *InputError) Error() string {
	switch {
	case e.MinerID != "" && e.Field != "":
		return fmt.Sprintf("invalid input for miner %s: %s: %s", e.MinerID, e.Field, e.Reason)
	case e.MinerID != "":
		return fmt.Sprintf("invalid input for miner %s: %s", e.MinerID, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid snapshot: %s: %s", e.Field, e.Reason)
	default:
		return "invalid snapshot: " + e.Reason
	}
}

// Isolable reports whether the error only concerns a single miner.
func (e *InputError) Isolable() bool { return e != nil && e.MinerID != "" }

// AnomalyError aborts a ranking run whose miner count is implausible against the last stored count.
type AnomalyError struct {
	Previous int
	Current  int
	HasPrev  bool
	Reason   string
}

func (e *AnomalyError) Error() string {
	if !e.HasPrev {
		return fmt.Sprintf("miner count anomaly: current=%d: %s", e.Current, e.Reason)
	}
	return fmt.Sprintf("miner count anomaly: previous=%d current=%d: %s", e.Previous, e.Current, e.Reason)
}

// IsFatal reports whether err must abort the cycle rather than degrade it.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var anomaly *AnomalyError
	if errors.As(err, &anomaly) {
		return true
	}
	var input *InputError
	if errors.As(err, &input) {
		return !input.Isolable()
	}
	return !errors.Is(err, ErrEmptyCohort)
}
