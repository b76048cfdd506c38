// internal/playback/state_test.go
package playback

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "Stopped"},
		{StatePlaying, "Playing"},
		{StatePaused, "Paused"},
		{State(42), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestState_IsActive(t *testing.T) {
	if StateStopped.IsActive() {
		t.Error("StateStopped.IsActive() should be false")
	}
	if !StatePlaying.IsActive() {
		t.Error("StatePlaying.IsActive() should be true")
	}
	if !StatePaused.IsActive() {
		t.Error("StatePaused.IsActive() should be true")
	}
}
