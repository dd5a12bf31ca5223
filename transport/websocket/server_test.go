package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/usecase"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv, _, _ := newTestServerWithStorage(t)

	return srv
}

func newTestServerWithStorage(t *testing.T) (*httptest.Server, *usecase.GameManager, *repository.MemorySessionRepository) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewMemorySessionRepository(0)
	manager := usecase.NewGameManager(logger, repo)

	router := chi.NewRouter()
	New(logger, manager, time.Hour).Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, manager, repo
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) (*websocket.Conn, *http.Response) {
	t.Helper()

	header := http.Header{}
	if sessionID != "" {
		header.Add("Cookie", pkg.SessionCookieName+"="+sessionID)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, resp
}

func sessionFromResponse(t *testing.T, resp *http.Response) string {
	t.Helper()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == pkg.SessionCookieName {
			return cookie.Value
		}
	}

	require.FailNow(t, "session cookie not set")
	return ""
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	msg := Message{Action: action}
	if payload != nil {
		msg.Payload = mustMarshal(payload)
	}

	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) (string, Payload) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))

	var payload Payload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))

	return msg.Action, payload
}

func intPtr(v int) *int {
	return &v
}

func TestServer_Connect(t *testing.T) {
	// Given: a running server
	srv := newTestServer(t)

	// When: a client connects without a session
	conn, resp := dial(t, srv, "")

	// Then: a session cookie is issued and the empty board is pushed
	assert.NotEmpty(t, sessionFromResponse(t, resp))

	action, payload := receive(t, conn)
	assert.Equal(t, actionState, action)
	require.NotNil(t, payload.Game)
	assert.Equal(t, "Next player: X", payload.Game.Status)
	assert.Len(t, payload.Game.Moves, 1)
}

func TestServer_Play(t *testing.T) {
	t.Run("Move is pushed back", func(t *testing.T) {
		// Given: a connected client
		srv := newTestServer(t)
		conn, _ := dial(t, srv, "")
		receive(t, conn)

		// When: X plays the center
		send(t, conn, actionPlay, Payload{Cell: intPtr(4)})

		// Then: the new state arrives
		action, payload := receive(t, conn)
		assert.Equal(t, actionState, action)
		require.NotNil(t, payload.Game)
		assert.Equal(t, "X", payload.Game.Squares[4].Mark)
		assert.Equal(t, "Next player: O", payload.Game.Status)
	})

	t.Run("Occupied cell is rejected with the unchanged state", func(t *testing.T) {
		// Given: X on the center
		srv := newTestServer(t)
		conn, _ := dial(t, srv, "")
		receive(t, conn)
		send(t, conn, actionPlay, Payload{Cell: intPtr(4)})
		receive(t, conn)

		// When: O plays the center too
		send(t, conn, actionPlay, Payload{Cell: intPtr(4)})

		// Then: the move is refused and nothing changed
		action, payload := receive(t, conn)
		assert.Equal(t, actionPlay, action)
		assert.NotEmpty(t, payload.Error)
		require.NotNil(t, payload.Game)
		assert.Equal(t, 1, payload.Game.CurrentIndex)
	})

	t.Run("Missing cell", func(t *testing.T) {
		srv := newTestServer(t)
		conn, _ := dial(t, srv, "")
		receive(t, conn)

		send(t, conn, actionPlay, nil)

		action, payload := receive(t, conn)
		assert.Equal(t, actionPlay, action)
		assert.Contains(t, payload.Error, "cell is required")
		assert.Nil(t, payload.Game)
	})
}

func TestServer_JumpAndOrder(t *testing.T) {
	// Given: two moves played
	srv := newTestServer(t)
	conn, _ := dial(t, srv, "")
	receive(t, conn)
	send(t, conn, actionPlay, Payload{Cell: intPtr(0)})
	receive(t, conn)
	send(t, conn, actionPlay, Payload{Cell: intPtr(1)})
	receive(t, conn)

	// When: jumping back to the start
	send(t, conn, actionJump, Payload{Index: intPtr(0)})

	// Then: the board is empty and the history is kept
	_, payload := receive(t, conn)
	require.NotNil(t, payload.Game)
	assert.Equal(t, 0, payload.Game.CurrentIndex)
	assert.Len(t, payload.Game.Moves, 3)
	assert.Empty(t, payload.Game.Squares[0].Mark)

	// When: flipping the move list
	send(t, conn, actionOrder, nil)

	// Then: the newest move comes first
	_, payload = receive(t, conn)
	require.NotNil(t, payload.Game)
	assert.False(t, payload.Game.SortAscending)
	assert.Equal(t, 2, payload.Game.Moves[0].Index)
}

func TestServer_Reset(t *testing.T) {
	srv := newTestServer(t)
	conn, _ := dial(t, srv, "")
	receive(t, conn)
	send(t, conn, actionPlay, Payload{Cell: intPtr(0)})
	receive(t, conn)

	send(t, conn, actionReset, nil)

	_, payload := receive(t, conn)
	require.NotNil(t, payload.Game)
	assert.Len(t, payload.Game.Moves, 1)
	assert.Equal(t, 0, payload.Game.CurrentIndex)
}

func TestServer_State(t *testing.T) {
	srv := newTestServer(t)
	conn, _ := dial(t, srv, "")
	receive(t, conn)

	send(t, conn, actionState, nil)

	action, payload := receive(t, conn)
	assert.Equal(t, actionState, action)
	require.NotNil(t, payload.Game)
}

func TestServer_BadMessages(t *testing.T) {
	t.Run("Unknown action", func(t *testing.T) {
		srv := newTestServer(t)
		conn, _ := dial(t, srv, "")
		receive(t, conn)

		send(t, conn, "game:undo", nil)

		action, payload := receive(t, conn)
		assert.Equal(t, "game:undo", action)
		assert.Equal(t, "unknown action", payload.Error)
	})

	t.Run("Not JSON", func(t *testing.T) {
		srv := newTestServer(t)
		conn, _ := dial(t, srv, "")
		receive(t, conn)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{nope")))

		action, payload := receive(t, conn)
		assert.Equal(t, actionError, action)
		assert.Equal(t, "invalid message", payload.Error)
	})
}

func TestServer_SharedSession(t *testing.T) {
	// Given: two connections of the same session
	srv := newTestServer(t)
	first, resp := dial(t, srv, "")
	receive(t, first)
	sessionID := sessionFromResponse(t, resp)

	second, resp := dial(t, srv, sessionID)
	receive(t, second)
	assert.Equal(t, sessionID, sessionFromResponse(t, resp))

	// When: the first one plays
	send(t, first, actionPlay, Payload{Cell: intPtr(8)})

	// Then: both see the move
	for _, conn := range []*websocket.Conn{first, second} {
		_, payload := receive(t, conn)
		require.NotNil(t, payload.Game)
		assert.Equal(t, "X", payload.Game.Squares[8].Mark)
	}
}

func TestServer_EndedSession(t *testing.T) {
	t.Run("Rejected request moves the client to the new session", func(t *testing.T) {
		// Given: a connected client whose session was ended elsewhere
		srv, manager, repo := newTestServerWithStorage(t)
		conn, resp := dial(t, srv, "")
		receive(t, conn)

		require.NoError(t, manager.EndSession(context.Background(), sessionFromResponse(t, resp)))
		require.Equal(t, 0, repo.Len())

		// When: it keeps sending jumps the new game refuses
		for range 3 {
			send(t, conn, actionJump, Payload{Index: intPtr(5)})

			action, payload := receive(t, conn)
			assert.Equal(t, actionJump, action)
			assert.NotEmpty(t, payload.Error)
			require.NotNil(t, payload.Game)
			assert.Equal(t, 0, payload.Game.CurrentIndex)
		}

		// Then: a single replacement session exists
		assert.Equal(t, 1, repo.Len())

		// When: it plays
		send(t, conn, actionPlay, Payload{Cell: intPtr(4)})

		// Then: the move lands in that session and is pushed back through its subscription
		action, payload := receive(t, conn)
		assert.Equal(t, actionState, action)
		require.NotNil(t, payload.Game)
		assert.Equal(t, "X", payload.Game.Squares[4].Mark)
		assert.Equal(t, 1, repo.Len())
	})
}
