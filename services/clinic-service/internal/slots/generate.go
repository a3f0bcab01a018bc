package slots

import (
	"fmt"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
)

// Generate returns the slot starts from start, advancing by stepMinutes, for
// as long as a start is strictly before end. The last slot may run past end.
func Generate(start, end model.ClockTime, stepMinutes int) ([]model.ClockTime, error) {
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot duration %d must be positive", model.ErrInvalidConfiguration, stepMinutes)
	}
	if !start.Valid() || !end.Valid() || start >= end {
		return nil, fmt.Errorf("%w: start %s must be before end %s", model.ErrInvalidConfiguration, start, end)
	}

	slots := make([]model.ClockTime, 0, int(end-start)/stepMinutes+1)
	for t := start; t < end; t += model.ClockTime(stepMinutes) {
		slots = append(slots, t)
	}
	return slots, nil
}

// Filter drops candidates that are booked and, when cutoff is non-nil, those
// at or before *cutoff. Order is preserved.
func Filter(candidates []model.ClockTime, booked map[model.ClockTime]struct{}, cutoff *model.ClockTime) []model.ClockTime {
	out := make([]model.ClockTime, 0, len(candidates))
	for _, c := range candidates {
		if _, taken := booked[c]; taken {
			continue
		}
		if cutoff != nil && c <= *cutoff {
			continue
		}
		out = append(out, c)
	}
	return out
}
