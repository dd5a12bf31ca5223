package tictactoe

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
)

// Game is the time-travel game state: every board reached so far, the one on
// display, and the order in which the move list is shown.
type Game struct {
	history       []HistoryEntry
	currentIndex  int
	sortAscending bool
}

// MoveListEntry is one row of the move list. Index identifies the entry
// independently of the display order.
type MoveListEntry struct {
	Index     int
	Move      Move
	IsCurrent bool
}

func NewGame() *Game {
	return &Game{
		history:       []HistoryEntry{{Board: Board{}, Move: NoMove}},
		currentIndex:  0,
		sortAscending: true,
	}
}

// Replay - builds a game by playing the moves in order from the empty board.
func Replay(moves []int) (*Game, error) {
	game := NewGame()
	for i, cell := range moves {
		if err := game.PlayMove(cell); err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
	}

	return game, nil
}

// PlayMove - places the mark of the player to move on the displayed board.
// Any later history is discarded first. Illegal moves leave the game unchanged.
func (that *Game) PlayMove(cell int) error {
	if err := that.validateMove(cell); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrIllegalMove, err)
	}

	next := that.CurrentBoard()
	next[cell] = that.NextPlayer()

	that.history = append(that.history[:that.currentIndex+1:that.currentIndex+1], HistoryEntry{
		Board: next,
		Move:  Move(cell),
	})
	that.currentIndex = len(that.history) - 1

	return nil
}

// validateMove - checks if the move is valid.
func (that *Game) validateMove(cell int) error {
	if !IsValidCell(cell) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	board := that.CurrentBoard()

	if Evaluate(board).IsFinished() {
		return apperror.ErrGameFinished
	}

	if board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// JumpTo - displays the history entry at index. History itself is left intact.
func (that *Game) JumpTo(index int) error {
	if index < 0 || index >= len(that.history) {
		return fmt.Errorf("%w: %d not in [0, %d)", apperror.ErrInvalidIndex, index, len(that.history))
	}

	that.currentIndex = index

	return nil
}

func (that *Game) ToggleOrder() {
	that.sortAscending = !that.sortAscending
}

func (that *Game) CurrentBoard() Board {
	return that.history[that.currentIndex].Board
}

func (that *Game) CurrentIndex() int {
	return that.currentIndex
}

func (that *Game) SortAscending() bool {
	return that.sortAscending
}

func (that *Game) Len() int {
	return len(that.history)
}

// History - returns a copy of all entries, oldest first.
func (that *Game) History() []HistoryEntry {
	history := make([]HistoryEntry, len(that.history))
	copy(history, that.history)

	return history
}

// NextPlayer - X moves on even history positions, O on odd ones.
func (that *Game) NextPlayer() Cell {
	if that.currentIndex%2 == 0 {
		return PlayerX
	}

	return PlayerO
}

func (that *Game) Verdict() Verdict {
	return Evaluate(that.CurrentBoard())
}

// MoveDescriptor - returns the zero-based row and column of the move stored at index.
// ok is false for the initial board and for indices outside the history.
func (that *Game) MoveDescriptor(index int) (row, col int, ok bool) {
	if index < 0 || index >= len(that.history) {
		return 0, 0, false
	}

	return that.history[index].Move.Position()
}

// MoveList - returns the entries of the move list in display order.
func (that *Game) MoveList() []MoveListEntry {
	entries := make([]MoveListEntry, len(that.history))
	for i, entry := range that.history {
		pos := i
		if !that.sortAscending {
			pos = len(that.history) - 1 - i
		}

		entries[pos] = MoveListEntry{
			Index:     i,
			Move:      entry.Move,
			IsCurrent: i == that.currentIndex,
		}
	}

	return entries
}

type gameJSON struct {
	History       []HistoryEntry `json:"history"`
	CurrentIndex  int            `json:"current_index"`
	SortAscending bool           `json:"sort_ascending"`
}

func (that *Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameJSON{
		History:       that.history,
		CurrentIndex:  that.currentIndex,
		SortAscending: that.sortAscending,
	})
}

// UnmarshalJSON - restores a game and rejects any history that could not have
// been produced by PlayMove.
func (that *Game) UnmarshalJSON(data []byte) error {
	var raw gameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal game: %w", err)
	}

	if err := validateHistory(raw.History); err != nil {
		return err
	}

	if raw.CurrentIndex < 0 || raw.CurrentIndex >= len(raw.History) {
		return fmt.Errorf("%w: current index %d", apperror.ErrCorruptHistory, raw.CurrentIndex)
	}

	that.history = raw.History
	that.currentIndex = raw.CurrentIndex
	that.sortAscending = raw.SortAscending

	return nil
}

func validateHistory(history []HistoryEntry) error {
	if len(history) == 0 {
		return fmt.Errorf("%w: empty history", apperror.ErrCorruptHistory)
	}

	if history[0].Board != (Board{}) || history[0].Move != NoMove {
		return fmt.Errorf("%w: history must start from the empty board", apperror.ErrCorruptHistory)
	}

	replayed := NewGame()
	for k := 1; k < len(history); k++ {
		if err := replayed.PlayMove(int(history[k].Move)); err != nil {
			return fmt.Errorf("%w: entry %d: %w", apperror.ErrCorruptHistory, k, err)
		}

		if replayed.CurrentBoard() != history[k].Board {
			return fmt.Errorf("%w: entry %d does not follow from its move", apperror.ErrCorruptHistory, k)
		}
	}

	return nil
}
