package websocket

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

func (that *Server) handleState(ctx context.Context, sessionID string, _ *Payload) (*entity.Session, error) {
	return that.game.GetOrCreateSession(ctx, sessionID)
}

func (that *Server) handlePlay(ctx context.Context, sessionID string, payload *Payload) (*entity.Session, error) {
	if payload.Cell == nil {
		return nil, fmt.Errorf("%w: cell is required", errBadPayload)
	}

	return that.game.PlayMove(ctx, sessionID, *payload.Cell)
}

func (that *Server) handleJump(ctx context.Context, sessionID string, payload *Payload) (*entity.Session, error) {
	if payload.Index == nil {
		return nil, fmt.Errorf("%w: index is required", errBadPayload)
	}

	return that.game.JumpTo(ctx, sessionID, *payload.Index)
}

func (that *Server) handleOrder(ctx context.Context, sessionID string, _ *Payload) (*entity.Session, error) {
	return that.game.ToggleOrder(ctx, sessionID)
}

func (that *Server) handleReset(ctx context.Context, sessionID string, _ *Payload) (*entity.Session, error) {
	return that.game.Reset(ctx, sessionID)
}
