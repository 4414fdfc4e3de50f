package server

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/exsim/exsim/pkg/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is handled by the API server wrapper
		return true
	},
}

// wsSink adapts a websocket connection to the engine sink. gorilla
// allows a single concurrent writer, and Close may race a report
// write, so both go through one mutex.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// handleWebSocket upgrades the connection and runs its read loop. The
// trader id comes from the ?trader query parameter when given, so a
// reconnecting client gets its session (and open orders) back;
// anonymous connections get a fresh uuid.
func (s *APIServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws_upgrade_failed", "err", err)
		return
	}

	traderID := r.URL.Query().Get("trader")
	if traderID == "" {
		traderID = uuid.NewString()
	}

	sink := &wsSink{conn: conn}
	session := s.matcher.GetTrader(traderID, sink)
	s.log.Infow("ws_client_connected", "trader", traderID, "remote", conn.RemoteAddr().String())

	defer func() {
		if session.UsesSink(sink) {
			s.matcher.RemoveTrader(session)
		}
		sink.Close()
		s.log.Infow("ws_client_disconnected", "trader", traderID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warnw("ws_read_failed", "trader", traderID, "err", err)
			}
			return
		}
		// A frame may batch several newline-joined messages
		for _, raw := range protocol.Split(data) {
			if err := s.matcher.HandleMessage(session, raw); err != nil {
				s.log.Warnw("message_dropped", "trader", traderID, "err", err)
			}
		}
	}
}
