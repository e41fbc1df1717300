package feed

import (
	"fmt"
	"time"
)

// Status is the loader's position in Idle → Loading → {Ready, Failed}.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

var statusNames = [...]string{"idle", "loading", "ready", "failed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText encodes the status by name in JSON responses.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is a point-in-time view of a Loader.
//
// Records survive a failure: a Failed state still carries the last
// successful result, and Err describes the failure.
type State struct {
	Status     Status    `json:"status"`
	Identifier string    `json:"identifier"`
	Records    []Record  `json:"records"`
	Err        string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Empty reports a settled, successful load with nothing to show.
func (s State) Empty() bool {
	return s.Status == StatusReady && len(s.Records) == 0
}
