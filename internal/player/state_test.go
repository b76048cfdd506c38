// internal/player/state_test.go
package player

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Stopped, "Stopped"},
		{Playing, "Playing"},
		{Paused, "Paused"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestState_IsActive(t *testing.T) {
	if Stopped.IsActive() {
		t.Error("Stopped.IsActive() should be false")
	}
	if !Playing.IsActive() {
		t.Error("Playing.IsActive() should be true")
	}
	if !Paused.IsActive() {
		t.Error("Paused.IsActive() should be true")
	}
}

func TestState_CanPauseResume(t *testing.T) {
	if !Playing.CanPause() {
		t.Error("Playing.CanPause() should be true")
	}
	if Paused.CanPause() {
		t.Error("Paused.CanPause() should be false")
	}
	if !Paused.CanResume() {
		t.Error("Paused.CanResume() should be true")
	}
	if Playing.CanResume() {
		t.Error("Playing.CanResume() should be false")
	}
}
