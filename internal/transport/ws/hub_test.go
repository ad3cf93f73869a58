package ws

import (
	"sync"
	"testing"

	"storyvoice-server-go/internal/platform/logging"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(logging.Config{Level: "ERROR", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestHub_BroadcastFiltering(t *testing.T) {
	logger := testLogger(t)
	hub := NewHub(logger)

	all := NewSession("all", nil, logger)
	onlyA := NewSession("a", nil, logger)
	onlyA.SetRunFilter("run-a")
	onlyB := NewSession("b", nil, logger)
	onlyB.SetRunFilter("run-b")

	hub.Register(all)
	hub.Register(onlyA)
	hub.Register(onlyB)

	hub.Broadcast("run-a", []byte("progress-a"))

	if got := len(all.send); got != 1 {
		t.Errorf("unfiltered session should receive the message, got %d", got)
	}
	if got := len(onlyA.send); got != 1 {
		t.Errorf("run-a subscriber should receive the message, got %d", got)
	}
	if got := len(onlyB.send); got != 0 {
		t.Errorf("run-b subscriber should not receive run-a messages, got %d", got)
	}
}

func TestHub_RegisterUnregisterCount(t *testing.T) {
	logger := testLogger(t)
	hub := NewHub(logger)

	s := NewSession("s1", nil, logger)
	hub.Register(s)
	if hub.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", hub.Count())
	}
	hub.Unregister("s1")
	if hub.Count() != 0 {
		t.Fatalf("expected 0 sessions, got %d", hub.Count())
	}
}

func TestSession_SendAfterClose(t *testing.T) {
	logger := testLogger(t)
	s := NewSession("s", nil, logger)
	s.Close()
	// Must not panic on the closed channel.
	s.Send([]byte("late"))
}

func TestSession_ConcurrentSendAndClose(t *testing.T) {
	logger := testLogger(t)

	// Broadcasts racing a disconnect must never hit a closed channel.
	for i := 0; i < 50; i++ {
		s := NewSession("race", nil, logger)
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					s.Send([]byte("progress"))
				}
			}()
		}
		s.Close()
		wg.Wait()
		s.Send([]byte("late"))
	}
}

func TestSession_DropWhenLagging(t *testing.T) {
	logger := testLogger(t)
	s := NewSession("slow", nil, logger)
	for i := 0; i < sendBufferSize+10; i++ {
		s.Send([]byte("m"))
	}
	if got := len(s.send); got != sendBufferSize {
		t.Errorf("buffer should cap at %d, got %d", sendBufferSize, got)
	}
}
