package ui

import (
	"testing"
	"time"
)

func TestColorFuncPassthrough(t *testing.T) {
	// In test runs stdout is not a terminal, so colors are disabled and the
	// text must pass through untouched.
	if supportsColor {
		t.Skip("running on a terminal")
	}

	if got := ColorError("boom"); got != "boom" {
		t.Errorf("Expected plain text, got %q", got)
	}
	if got := ColorSuccess("ok"); got != "ok" {
		t.Errorf("Expected plain text, got %q", got)
	}
}

func TestSpinnerStopIsSafe(t *testing.T) {
	s := NewSpinner("waiting for cluster")
	s.Start()
	s.UpdateMessage("still waiting")
	time.Sleep(10 * time.Millisecond)
	s.Stop(true, "done")
}
