package handler

import (
	"testing"
	"time"

	ws "github.com/skylearn/assess-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDropsOnFullBuffer(t *testing.T) {
	h := &WSHandler{}
	out := make(chan interface{}, 1)
	out <- ws.PongResponse{Event: ws.EventPong}

	h.send(out, ws.TimeEvent{Event: ws.EventTime, TimeRemaining: 30})
	assert.Len(t, out, 1, "a full buffer drops routine events")
}

func TestSendTerminalWaitsOutFullBuffer(t *testing.T) {
	h := &WSHandler{}
	out := make(chan interface{}, 1)
	out <- ws.TimeEvent{Event: ws.EventTime, TimeRemaining: 30}

	// Drain the stale event shortly after sendTerminal starts waiting,
	// the way the writer goroutine would once the socket catches up.
	go func() {
		time.Sleep(50 * time.Millisecond)
		<-out
	}()

	done := make(chan struct{})
	go func() {
		h.sendTerminal(out, ws.SubmittedEvent{Event: ws.EventSubmitted})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sendTerminal never delivered")
	}

	v := <-out
	ev, ok := v.(ws.SubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, ws.EventSubmitted, ev.Event)
}
