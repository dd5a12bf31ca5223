package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/view"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 8
)

type gameUseCase interface {
	GetOrCreateSession(ctx context.Context, id string) (*entity.Session, error)
	PlayMove(ctx context.Context, sessionID string, cell int) (*entity.Session, error)
	JumpTo(ctx context.Context, sessionID string, index int) (*entity.Session, error)
	ToggleOrder(ctx context.Context, sessionID string) (*entity.Session, error)
	Reset(ctx context.Context, sessionID string) (*entity.Session, error)
	Subscribe(sessionID string) (<-chan *entity.Session, func())
}

type handlerFunc func(ctx context.Context, sessionID string, payload *Payload) (*entity.Session, error)

type Server struct {
	logger     *slog.Logger
	game       gameUseCase
	sessionTTL time.Duration
	upgrader   websocket.Upgrader

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, game gameUseCase, sessionTTL time.Duration) *Server {
	server := &Server{
		logger:     logger.With("component", "websocket"),
		game:       game,
		sessionTTL: sessionTTL,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionState] = server.handleState
	server.handlers[actionPlay] = server.handlePlay
	server.handlers[actionJump] = server.handleJump
	server.handlers[actionOrder] = server.handleOrder
	server.handlers[actionReset] = server.handleReset

	return server
}

func (that *Server) Register(router chi.Router) {
	router.Get("/ws", that.ServeWS)
}

// ServeWS - upgrades the connection and keeps the client in sync with its session.
func (that *Server) ServeWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeWS")

	ctx := req.Context()

	session, err := that.game.GetOrCreateSession(ctx, pkg.SessionIDFromRequest(req))
	if err != nil {
		log.Error("failed to get session", "error", err)
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	header := http.Header{}
	header.Add("Set-Cookie", pkg.NewSessionCookie(session.ID, that.sessionTTL).String())

	conn, err := that.upgrader.Upgrade(writer, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(conn)
	defer c.close()

	c.follow(that.game, session.ID)
	defer func() { c.unsubscribe() }()

	go that.writePump(c)

	log.Info("WebSocket connection established", "session", session.ID)

	c.send(stateMessage(session))

	that.readPump(ctx, c)
}

// readPump - processes messages from the client until the connection fails.
func (that *Server) readPump(ctx context.Context, c *client) {
	log := that.logger.With("method", "readPump")

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Debug("failed to unmarshal message", "error", err)
			c.send(errorMessage(actionError, "invalid message"))
			continue
		}

		that.handleMessage(ctx, c, &message)
	}
}

func (that *Server) handleMessage(ctx context.Context, c *client, msg *Message) {
	log := that.logger.With("method", "handleMessage", "action", msg.Action, "session", c.sessionID)

	handler, ok := that.handlers[msg.Action]
	if !ok {
		c.send(errorMessage(msg.Action, "unknown action"))
		return
	}

	var payload Payload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.send(errorMessage(msg.Action, "invalid payload"))
			return
		}
	}

	session, err := handler(ctx, c.sessionID, &payload)

	// The session behind the cookie expired and a new one took its place,
	// whether or not the request itself was accepted.
	replaced := session != nil && session.ID != c.sessionID
	if replaced {
		c.follow(that.game, session.ID)
	}

	switch {
	case err == nil:
	case usecase.IsRejected(err):
		game := view.New(session.Game)
		c.send(newMessage(msg.Action, Payload{Game: &game, Error: err.Error()}))
		return
	case errors.Is(err, errBadPayload):
		c.send(errorMessage(msg.Action, err.Error()))
		return
	default:
		log.Error("failed to handle message", "error", err)
		c.send(errorMessage(msg.Action, "internal error"))
		return
	}

	// Other changes reach this client through its subscription.
	if replaced || msg.Action == actionState {
		c.send(stateMessage(session))
	}
}

// writePump - is the only writer of the connection.
func (that *Server) writePump(c *client) {
	log := that.logger.With("method", "writePump")

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debug("failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// client is one connection. sessionID and unsubscribe belong to the goroutine
// serving the connection.
type client struct {
	conn *websocket.Conn
	out  chan *Message
	done chan struct{}
	once sync.Once

	sessionID   string
	unsubscribe func()
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		out:  make(chan *Message, sendBuffer),
		done: make(chan struct{}),
	}
}

// send - queues msg for the writer. It reports false once the client is closed.
func (c *client) send(msg *Message) bool {
	select {
	case c.out <- msg:
		return true
	case <-c.done:
		return false
	}
}

// follow - switches the client to the changes of another session.
func (c *client) follow(game gameUseCase, sessionID string) {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}

	updates, cancel := game.Subscribe(sessionID)
	c.sessionID = sessionID
	c.unsubscribe = cancel

	go func() {
		for session := range updates {
			if !c.send(stateMessage(session)) {
				return
			}
		}
	}()
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
