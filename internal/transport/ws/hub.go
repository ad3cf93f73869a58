// Package ws streams generation run progress to websocket subscribers.
package ws

import (
	"sync"

	"storyvoice-server-go/internal/platform/logging"
)

// Hub tracks active progress subscriber sessions.
type Hub struct {
	logger   *logging.Logger
	sessions sync.Map // map[string]*Session
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{logger: logger}
}

func (h *Hub) Register(session *Session) {
	if session == nil {
		return
	}
	h.sessions.Store(session.ID(), session)
}

func (h *Hub) Unregister(id string) {
	h.sessions.Delete(id)
}

// Broadcast delivers a message to every session subscribed to the run. An
// empty session filter means the session wants every run.
func (h *Hub) Broadcast(runID string, message []byte) {
	h.sessions.Range(func(_, value any) bool {
		session, ok := value.(*Session)
		if !ok {
			return true
		}
		if filter := session.RunFilter(); filter == "" || filter == runID {
			session.Send(message)
		}
		return true
	})
}

// CloseAll terminates every session, used during shutdown.
func (h *Hub) CloseAll() {
	h.sessions.Range(func(key, value any) bool {
		if session, ok := value.(*Session); ok {
			session.Close()
		}
		h.sessions.Delete(key)
		return true
	})
}

// Count reports the number of connected subscribers.
func (h *Hub) Count() int {
	n := 0
	h.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
