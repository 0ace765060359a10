package report

import (
	"encoding/json"
	"fmt"
)

type Status int

const (
	StatusUnsupported Status = iota
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Well-known failure reasons.
const (
	ReasonTimeout     = "timeout"
	ReasonCancelled   = "cancelled"
	ReasonNoReply     = "no reply"
	ReasonInvalidHost = "invalid host"
)

// Outcome is the result of probing a single host with a single protocol.
// The zero value is Unsupported.
type Outcome struct {
	Status Status
	Reason string
}

func Success() Outcome {
	return Outcome{Status: StatusSuccess}
}

func Failure(reason string) Outcome {
	return Outcome{Status: StatusFailure, Reason: reason}
}

func Failuref(format string, args ...any) Outcome {
	return Failure(fmt.Sprintf(format, args...))
}

func Unsupported() Outcome {
	return Outcome{Status: StatusUnsupported}
}

func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

func (o Outcome) Failed() bool {
	return o.Status == StatusFailure
}

// String renders the outcome the way it is shown on a report line:
// yes, no, no(<reason>) or unsupported.
func (o Outcome) String() string {
	switch o.Status {
	case StatusSuccess:
		return "yes"
	case StatusFailure:
		if o.Reason == "" {
			return "no"
		}

		return "no(" + o.Reason + ")"
	default:
		return "unsupported"
	}
}

type outcomeDTO struct {
	Status string `json:"status" yaml:"status"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(outcomeDTO{Status: o.Status.String(), Reason: o.Reason})
}

func (o Outcome) MarshalYAML() (any, error) {
	return outcomeDTO{Status: o.Status.String(), Reason: o.Reason}, nil
}
