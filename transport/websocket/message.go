package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/view"
)

const (
	actionState = "game:state"
	actionPlay  = "game:play"
	actionJump  = "game:jump"
	actionOrder = "game:order"
	actionReset = "game:reset"

	actionError = "error"
)

var errBadPayload = errors.New("bad payload")

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	Cell  *int       `json:"cell,omitempty"`
	Index *int       `json:"index,omitempty"`
	Game  *view.Game `json:"game,omitempty"`
	Error string     `json:"error,omitempty"`
}

func newMessage(action string, payload Payload) *Message {
	return &Message{
		Action:  action,
		Payload: mustMarshal(payload),
	}
}

func stateMessage(session *entity.Session) *Message {
	game := view.New(session.Game)
	return newMessage(actionState, Payload{Game: &game})
}

func errorMessage(action, errorMsg string) *Message {
	return newMessage(action, Payload{Error: errorMsg})
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("failed to marshal payload: %w", err))
	}

	return b
}
