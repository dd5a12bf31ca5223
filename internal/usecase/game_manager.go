package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

const subscriberBuffer = 1

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// GameManager owns the games of all sessions. Changes to one session go through
// it one at a time, and every change is published to the subscribers of the session.
type GameManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
	newID       func() string

	locksMu sync.Mutex
	locks   map[string]*sessionLock

	subMu       sync.Mutex
	subscribers map[string]map[chan *entity.Session]struct{}
}

func NewGameManager(logger *slog.Logger, sessionRepo sessionRepo) *GameManager {
	return &GameManager{
		logger:      logger.With("component", "game_manager"),
		sessionRepo: sessionRepo,
		newID:       uuid.NewString,

		locks:       make(map[string]*sessionLock),
		subscribers: make(map[string]map[chan *entity.Session]struct{}),
	}
}

// IsRejected - reports whether err is a move or jump the game refused. The
// session returned alongside such an error is valid and unchanged.
func IsRejected(err error) bool {
	return errors.Is(err, apperror.ErrIllegalMove) || errors.Is(err, apperror.ErrInvalidIndex)
}

// GetOrCreateSession - returns the session with the given id, or a new session
// with a fresh id when id is empty or unknown.
func (that *GameManager) GetOrCreateSession(ctx context.Context, id string) (*entity.Session, error) {
	defer that.lockSession(id)()

	return that.getOrCreateSessionLocked(ctx, id)
}

func (that *GameManager) PlayMove(ctx context.Context, sessionID string, cell int) (*entity.Session, error) {
	return that.update(ctx, sessionID, "PlayMove", func(game *tictactoe.Game) (*tictactoe.Game, error) {
		return game, game.PlayMove(cell)
	})
}

func (that *GameManager) JumpTo(ctx context.Context, sessionID string, index int) (*entity.Session, error) {
	return that.update(ctx, sessionID, "JumpTo", func(game *tictactoe.Game) (*tictactoe.Game, error) {
		return game, game.JumpTo(index)
	})
}

func (that *GameManager) ToggleOrder(ctx context.Context, sessionID string) (*entity.Session, error) {
	return that.update(ctx, sessionID, "ToggleOrder", func(game *tictactoe.Game) (*tictactoe.Game, error) {
		game.ToggleOrder()
		return game, nil
	})
}

// Reset - replaces the session's game with a new one.
func (that *GameManager) Reset(ctx context.Context, sessionID string) (*entity.Session, error) {
	return that.update(ctx, sessionID, "Reset", func(*tictactoe.Game) (*tictactoe.Game, error) {
		return tictactoe.NewGame(), nil
	})
}

// EndSession - destroys the session and its game. Ending an unknown session is not an error.
func (that *GameManager) EndSession(ctx context.Context, sessionID string) error {
	defer that.lockSession(sessionID)()

	err := that.sessionRepo.DeleteByID(ctx, sessionID)
	if err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	that.logger.Info("session ended", "session", sessionID)

	return nil
}

// Subscribe - returns a channel receiving the session after each change, and a
// function to stop. Slow readers only ever miss intermediate states.
func (that *GameManager) Subscribe(sessionID string) (<-chan *entity.Session, func()) {
	ch := make(chan *entity.Session, subscriberBuffer)

	that.subMu.Lock()
	if that.subscribers[sessionID] == nil {
		that.subscribers[sessionID] = make(map[chan *entity.Session]struct{})
	}
	that.subscribers[sessionID][ch] = struct{}{}
	that.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			that.subMu.Lock()
			defer that.subMu.Unlock()

			delete(that.subscribers[sessionID], ch)
			if len(that.subscribers[sessionID]) == 0 {
				delete(that.subscribers, sessionID)
			}
			close(ch)
		})
	}

	return ch, cancel
}

func (that *GameManager) update(
	ctx context.Context,
	sessionID, method string,
	apply func(game *tictactoe.Game) (*tictactoe.Game, error),
) (*entity.Session, error) {
	log := that.logger.With("method", method, "session", sessionID)

	defer that.lockSession(sessionID)()

	session, err := that.getOrCreateSessionLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	game, err := apply(session.Game)
	if IsRejected(err) {
		log.Debug("request ignored", "error", err)
		return session, err
	}

	if err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", method, err)
	}

	session.Game = game
	session.Touch()

	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	that.publish(session)

	return session, nil
}

// lockSession - waits until no other call holds the session, and returns the
// function releasing it. A fresh session id needs no lock of its own since
// nobody else knows it yet.
func (that *GameManager) lockSession(sessionID string) func() {
	that.locksMu.Lock()
	lock, ok := that.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		that.locks[sessionID] = lock
	}
	lock.refs++
	that.locksMu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		that.locksMu.Lock()
		defer that.locksMu.Unlock()

		lock.refs--
		if lock.refs == 0 {
			delete(that.locks, sessionID)
		}
	}
}

func (that *GameManager) getOrCreateSessionLocked(ctx context.Context, id string) (*entity.Session, error) {
	if id != "" {
		session, err := that.sessionRepo.GetByID(ctx, id)
		if err == nil {
			return session, nil
		}

		if !errors.Is(err, apperror.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
	}

	return that.createSessionLocked(ctx)
}

func (that *GameManager) createSessionLocked(ctx context.Context) (*entity.Session, error) {
	session := entity.NewSession(that.newID())

	if err := that.updateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	that.logger.Info("session created", "session", session.ID)

	return session, nil
}

func (that *GameManager) updateSession(ctx context.Context, session *entity.Session) error {
	if err := that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// publish - hands the session to every subscriber, replacing a snapshot the
// subscriber has not read yet.
func (that *GameManager) publish(session *entity.Session) {
	that.subMu.Lock()
	defer that.subMu.Unlock()

	for ch := range that.subscribers[session.ID] {
		select {
		case ch <- session:
			continue
		default:
		}

		select {
		case <-ch:
		default:
		}

		select {
		case ch <- session:
		default:
			that.logger.Warn("subscriber dropped a snapshot", "session", session.ID)
		}
	}
}
