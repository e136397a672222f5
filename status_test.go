package backtest

import (
	"encoding/json"
	"errors"
	"testing"
)

var errTest = errors.New("test error")

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in       string
		want     Status
		known    bool
		terminal bool
		display  string
	}{
		{in: "RUNNING", want: Running, known: true, display: "running"},
		{in: "running", want: Running, known: true, display: "running"},
		{in: " Completed ", want: Completed, known: true, terminal: true, display: "completed"},
		{in: "failed", want: Failed, known: true, terminal: true, display: "failed"},
		{in: "CREATED", want: Created, known: true, display: "created"},
		{in: "paused", want: Status("PAUSED"), known: false, display: "created"},
		{in: "", want: Status(""), known: false, display: "created"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseStatus(tt.in)
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got.Known() != tt.known {
				t.Errorf("Known() = %v, want %v", got.Known(), tt.known)
			}
			if got.Terminal() != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got.Terminal(), tt.terminal)
			}
			if got.Display() != tt.display {
				t.Errorf("Display() = %q, want %q", got.Display(), tt.display)
			}
		})
	}
}

func TestStatus_UnmarshalSnapshot(t *testing.T) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(`{"42":"running","43":"COMPLETED"}`), &snap); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !snap.Equal(Snapshot{"42": Running, "43": Completed}) {
		t.Errorf("Unmarshal() = %v", snap)
	}
	if got := snap.Running(); len(got) != 1 || got[0] != "42" {
		t.Errorf("Running() = %v, want [42]", got)
	}
}
