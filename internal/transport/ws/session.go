package ws

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"storyvoice-server-go/internal/platform/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// subscribeMessage is the only inbound message type: an optional run filter.
type subscribeMessage struct {
	RunID string `json:"run_id"`
}

// Session is one websocket subscriber. Writes go through a buffered channel
// so a slow client stalls only itself; when its buffer fills, messages to it
// are dropped.
type Session struct {
	id     string
	conn   *websocket.Conn
	logger *logging.Logger

	send chan []byte
	once sync.Once

	mu     sync.RWMutex
	runID  string
	closed bool
}

func NewSession(id string, conn *websocket.Conn, logger *logging.Logger) *Session {
	return &Session{
		id:     id,
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
	}
}

func (s *Session) ID() string { return s.id }

// RunFilter returns the run this session subscribed to, empty for all runs.
func (s *Session) RunFilter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

func (s *Session) SetRunFilter(runID string) {
	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()
}

// Send queues a message, dropping it if the session's buffer is full. The
// read lock is held across the channel send so Close cannot close the
// channel underneath it.
func (s *Session) Send(message []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.send <- message:
	default:
		s.logger.WarnTag("WS", "session %s lagging, dropping progress message", s.id)
	}
}

// Close tears the session down once. The channel is closed under the write
// lock, after every in-flight Send has released its read lock.
func (s *Session) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.send)
		s.mu.Unlock()
	})
}

// Run pumps the session until the client disconnects. It blocks; the caller
// owns the goroutine.
func (s *Session) Run(hub *Hub) {
	defer func() {
		hub.Unregister(s.id)
		s.Close()
		s.conn.Close()
	}()

	go s.writePump()
	s.readPump()
}

// readPump consumes inbound messages. Only subscribe messages are accepted;
// anything unparseable is ignored.
func (s *Session) readPump() {
	s.conn.SetReadLimit(1 << 10)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg subscribeMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.SetRunFilter(msg.RunID)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
