package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"sxsim/model"
	"sxsim/simulator"
)

type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	sim         *simulator.Simulator
	historySize int
}

func NewServer(addr string, upgrader websocket.Upgrader, sim *simulator.Simulator, historySize int) *Server {
	return &Server{
		addr:        addr,
		upgrader:    upgrader,
		sim:         sim,
		historySize: historySize,
	}
}

// serveWs handles websocket requests from the peer. Every connection gets its own
// environment; the simulator is shared.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	hub := NewHub(simulator.NewEnv(s.sim), s.historySize)
	hub.conn = conn
	go hub.handleRequest()
	go hub.handleResponse()

	log.WithField("remote", r.RemoteAddr).Info("client connected")
	for {
		var msg model.Msg
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("read message")
			}
			break
		}
		hub.msg <- msg
		if msg.Type == TypeStop {
			break
		}
	}
	close(hub.msg)
	<-hub.done
	log.WithFields(log.Fields{
		"remote": r.RemoteAddr,
		"steps":  hub.env.Steps(),
	}).Info("client disconnected")
}

// Handler routes /ws to the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.serveWs(w, r)
	})
	return mux
}

func (s *Server) Serve() error {
	log.WithField("addr", s.addr).Info("listening")
	err := http.ListenAndServe(s.addr, s.Handler())
	if err != nil {
		return errors.Wrap(err, "ListenAndServe")
	}
	return nil
}
