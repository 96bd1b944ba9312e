package payout

import (
	"fmt"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
)

// Event is an input to the payout state machine
type Event string

const (
	// EventProcess starts a transfer attempt
	EventProcess Event = "PROCESS"
	// EventSucceed records a successful transfer
	EventSucceed Event = "SUCCEED"
	// EventFail records a failed transfer attempt
	EventFail Event = "FAIL"
)

// State is the snapshot of a payout the transition function operates on
type State struct {
	Status     Status
	RetryCount int
	MaxRetries int
}

// Effects describes the side effects the caller must perform after a
// transition
type Effects struct {
	// ReleaseAllocations is set when the referenced allocations must be
	// released under the payout reference
	ReleaseAllocations bool
	// ScheduleRetry is set when a retry must be scheduled
	ScheduleRetry bool
	// NotifyFailure is set when the seller should be told the payout is
	// terminally failed and needs manual intervention
	NotifyFailure bool
}

// Transition is the pure payout state machine:
//
//	Scheduled          --PROCESS--> Processing
//	Failed (retryable) --PROCESS--> Processing
//	Processing         --SUCCEED--> Paid     (release allocations)
//	Processing         --FAIL-----> Failed   (schedule retry until MaxRetries)
//
// Every other combination is an illegal transition.
func Transition(s State, e Event) (State, Effects, error) {
	switch e {
	case EventProcess:
		if s.Status == StatusScheduled {
			s.Status = StatusProcessing
			return s, Effects{}, nil
		}
		if s.Status == StatusFailed && s.RetryCount < s.MaxRetries {
			s.Status = StatusProcessing
			return s, Effects{}, nil
		}
		return s, Effects{}, illegal(s.Status, e)

	case EventSucceed:
		if s.Status != StatusProcessing {
			return s, Effects{}, illegal(s.Status, e)
		}
		s.Status = StatusPaid
		return s, Effects{ReleaseAllocations: true}, nil

	case EventFail:
		if s.Status != StatusProcessing {
			return s, Effects{}, illegal(s.Status, e)
		}
		s.Status = StatusFailed
		s.RetryCount++
		if s.RetryCount < s.MaxRetries {
			return s, Effects{ScheduleRetry: true}, nil
		}
		return s, Effects{NotifyFailure: true}, nil

	default:
		return s, Effects{}, shared.NewDomainError("INVALID_EVENT",
			fmt.Sprintf("Unknown payout event %q", e))
	}
}

func illegal(status Status, e Event) error {
	return shared.NewDomainError("INVALID_STATE",
		fmt.Sprintf("Cannot apply %s to a %s payout", e, status))
}
