// internal/playback/subscription_test.go
package playback

import "testing"

func TestSubscription_NonBlockingWhenFull(t *testing.T) {
	sub := newSubscription()

	// Overfill the buffer; sends must drop instead of blocking.
	for i := 0; i < eventBufferSize*2; i++ {
		sub.sendState(StateChange{Previous: StateStopped, Current: StatePlaying})
	}

	if got := len(sub.stateCh); got != eventBufferSize {
		t.Errorf("buffered events = %d, want %d", got, eventBufferSize)
	}
}

func TestSubscription_Close(t *testing.T) {
	sub := newSubscription()

	sub.close()

	select {
	case <-sub.Done:
	default:
		t.Error("Done should be closed")
	}
}
