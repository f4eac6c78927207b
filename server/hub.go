package server

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"sxsim/deque"
	"sxsim/model"
	"sxsim/simulator"
)

// Message types.
const (
	TypeEnv     = "env"
	TypeStart   = "start"
	TypeHistory = "history"
	TypeStop    = "stop"

	TypeEnvSet  = "envSet"
	TypeResult  = "result"
	TypeStopped = "stopped"
	TypeError   = "error"
)

// Hub serves one connection. Requests are handled in order on a single goroutine,
// which owns the environment and the history.
type Hub struct {
	env     *simulator.Env
	action  model.Action
	history *deque.ArrDeque[simulator.Step]
	conn    *websocket.Conn
	// request
	msg chan model.Msg
	// response
	replies chan model.Msg
	done    chan struct{}
}

func NewHub(env *simulator.Env, historySize int) *Hub {
	return &Hub{
		env:     env,
		action:  simulator.ActionMin,
		history: deque.NewArrDeque[simulator.Step](historySize),
		msg:     make(chan model.Msg, 10),
		replies: make(chan model.Msg, 10),
		done:    make(chan struct{}),
	}
}

func (h *Hub) handleResponse() {
	defer close(h.done)
	for reply := range h.replies {
		if err := h.conn.WriteJSON(&reply); err != nil {
			log.WithError(err).WithField("type", reply.Type).Warn("write reply")
		}
	}
}

func (h *Hub) handleRequest() {
	for msg := range h.msg {
		h.replies <- h.handle(msg)
	}
	close(h.replies)
}

func (h *Hub) handle(msg model.Msg) model.Msg {
	switch msg.Type {
	case TypeEnv:
		var a model.Action
		if err := json.Unmarshal([]byte(msg.Content), &a); err != nil {
			return errorReply(err)
		}
		h.action = simulator.Clamp(a)
		h.env.Reset()
		return h.reply(TypeEnvSet, h.action)
	case TypeStart:
		step, err := h.env.Step(h.action)
		if err != nil {
			return errorReply(err)
		}
		h.history.Push(step)
		return h.reply(TypeResult, step)
	case TypeHistory:
		return h.reply(TypeHistory, h.history.Slice())
	case TypeStop:
		return model.Msg{Type: TypeStopped, Content: "stopped"}
	default:
		log.WithField("type", msg.Type).Warn("no such type")
		return model.Msg{Type: TypeError, Content: "no such type: " + msg.Type}
	}
}

func (h *Hub) reply(typ string, v interface{}) model.Msg {
	data, err := json.Marshal(v)
	if err != nil {
		return errorReply(err)
	}
	return model.Msg{Type: typ, Content: string(data)}
}

func errorReply(err error) model.Msg {
	log.WithError(err).Warn("request failed")
	return model.Msg{Type: TypeError, Content: err.Error()}
}
