package backtest

import (
	"encoding/json"
	"strings"
)

// Status is the lifecycle state of a backtest job as reported by the API.
//
// Values are normalized to upper case. Unknown values coming from the wire are
// kept as is, so that the server remains the source of truth, but they report
// Known() == false.
type Status string

const (
	Created   Status = "CREATED"
	Running   Status = "RUNNING"
	Completed Status = "COMPLETED"
	Failed    Status = "FAILED"
)

// ParseStatus normalizes a status read from the wire. It never fails.
func ParseStatus(s string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(s)))
}

// Known reports whether s is one of the four documented statuses.
func (s Status) Known() bool {
	switch s {
	case Created, Running, Completed, Failed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool { return s == Completed || s == Failed }

func (s Status) String() string { return string(s) }

// Display returns the lower case label used in reports. Unknown statuses are
// displayed as "created".
func (s Status) Display() string {
	if !s.Known() {
		return "created"
	}
	return strings.ToLower(string(s))
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ParseStatus(str)
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// check that a Status pointer is a valid json marshall/unmarshaller type.
var _ json.Marshaler = (*Status)(nil)
var _ json.Unmarshaler = (*Status)(nil)
