package management

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/frontend/telnet"
)

const (
	feedBuffer       = 64
	feedWriteTimeout = 5 * time.Second
)

// Status is the body of GET /status.
type Status struct {
	Name            string        `json:"name"`
	Uptime          time.Duration `json:"uptime_ns"`
	Listener        ListenerState `json:"listener"`
	Sessions        int           `json:"sessions"`
	Players         []string      `json:"players"`
	FeedSubscribers int           `json:"feed_subscribers"`
	FeedBacklog     int           `json:"feed_backlog"`
}

// ListenerState describes the player listener.
type ListenerState struct {
	Running bool   `json:"running"`
	Addr    string `json:"addr,omitempty"`
}

func (s *Server) listenerState() ListenerState {
	return ListenerState{Running: s.listener.IsRunning(), Addr: s.listener.Addr()}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	players := s.sessions.Players()
	if players == nil {
		players = []string{}
	}
	writeJSON(w, http.StatusOK, Status{
		Name:            s.name,
		Uptime:          time.Since(s.started),
		Listener:        s.listenerState(),
		Sessions:        s.sessions.Count(),
		Players:         players,
		FeedSubscribers: s.feed.Subscribers(),
		FeedBacklog:     len(s.feed.Backlog()),
	})
}

func (s *Server) handleListenerStart(w http.ResponseWriter, _ *http.Request) {
	err := s.StartListener()
	switch {
	case errors.Is(err, telnet.ErrRunning):
		writeError(w, http.StatusConflict, "listener already running")
	case err != nil:
		s.logger.Error("starting listener", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, s.listenerState())
	}
}

func (s *Server) handleListenerStop(w http.ResponseWriter, _ *http.Request) {
	s.StopListener()
	writeJSON(w, http.StatusOK, s.listenerState())
}

func (s *Server) handleFeedClear(w http.ResponseWriter, _ *http.Request) {
	s.feed.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleFeed streams the backlog and then live events as JSON text frames
// until the client goes away or the server stops. A client that falls behind
// misses events instead of slowing the feed.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("feed upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	defer conn.Close()

	backlog, events, cancel := s.feed.Subscribe(feedBuffer)
	defer cancel()
	s.logger.Debug("feed subscriber attached", zap.String("remote_addr", r.RemoteAddr))

	// The read side only exists to notice the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, e := range backlog {
		if err := writeEvent(conn, e); err != nil {
			return
		}
	}
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(conn, e); err != nil {
				return
			}
		case <-gone:
			return
		case <-s.stopped:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(time.Second))
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, e any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(e)
}
