package entity

import (
	"time"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

// Session binds one browser session to its game.
type Session struct {
	ID        string          `json:"id"`
	Game      *tictactoe.Game `json:"game"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Game:      tictactoe.NewGame(),
		UpdatedAt: time.Now().UTC(),
	}
}

// Touch - marks the session as modified now.
func (that *Session) Touch() {
	that.UpdatedAt = time.Now().UTC()
}
