// Package view turns a game into what the page and the API show: status text,
// squares with highlighting, and the move list in display order.
package view

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

const (
	orderAscending  = "ASC"
	orderDescending = "DESC"
)

type Square struct {
	Index     int    `json:"index"`
	Mark      string `json:"mark"`
	Highlight bool   `json:"highlight"`
	Playable  bool   `json:"playable"`
}

// Move is one entry of the move list. Index is the history index and stays the
// entry's identity whatever the display order.
type Move struct {
	Index     int    `json:"index"`
	Label     string `json:"label"`
	IsCurrent bool   `json:"is_current"`
	Row       int    `json:"row,omitempty"`
	Col       int    `json:"col,omitempty"`
}

type Game struct {
	Status        string   `json:"status"`
	Outcome       string   `json:"outcome"`
	Winner        string   `json:"winner,omitempty"`
	NextPlayer    string   `json:"next_player,omitempty"`
	Line          []int    `json:"line,omitempty"`
	Squares       []Square `json:"squares"`
	Moves         []Move   `json:"moves"`
	SortAscending bool     `json:"sort_ascending"`
	OrderLabel    string   `json:"order_label"`
	CurrentIndex  int      `json:"current_index"`
}

func New(game *tictactoe.Game) Game {
	verdict := game.Verdict()
	board := game.CurrentBoard()

	result := Game{
		Outcome:       string(verdict.Outcome),
		Line:          verdict.Line,
		Squares:       make([]Square, 0, tictactoe.BoardSize),
		SortAscending: game.SortAscending(),
		OrderLabel:    orderLabel(game.SortAscending()),
		CurrentIndex:  game.CurrentIndex(),
	}

	switch verdict.Outcome {
	case tictactoe.OutcomeWin:
		result.Winner = verdict.Winner.String()
		result.Status = "Winner: " + result.Winner
	case tictactoe.OutcomeDraw:
		result.Status = "Draw"
	default:
		result.NextPlayer = game.NextPlayer().String()
		result.Status = "Next player: " + result.NextPlayer
	}

	for i, cell := range board {
		result.Squares = append(result.Squares, Square{
			Index:     i,
			Mark:      cell.String(),
			Highlight: verdict.InLine(i),
			Playable:  cell == tictactoe.EmptyCell && !verdict.IsFinished(),
		})
	}

	for _, entry := range game.MoveList() {
		result.Moves = append(result.Moves, newMove(game, entry))
	}

	return result
}

// Rows - splits the squares into board rows.
func (that Game) Rows() [][]Square {
	rows := make([][]Square, 0, tictactoe.BoardWidth)
	for start := 0; start < len(that.Squares); start += tictactoe.BoardWidth {
		rows = append(rows, that.Squares[start:start+tictactoe.BoardWidth])
	}

	return rows
}

func newMove(game *tictactoe.Game, entry tictactoe.MoveListEntry) Move {
	move := Move{
		Index:     entry.Index,
		IsCurrent: entry.IsCurrent,
	}

	row, col, ok := game.MoveDescriptor(entry.Index)
	if ok {
		move.Row, move.Col = row+1, col+1
	}

	switch {
	case entry.IsCurrent:
		move.Label = fmt.Sprintf("You are at move #%d", entry.Index)
	case entry.Index == 0:
		move.Label = "Go to game start"
	default:
		move.Label = fmt.Sprintf("Go to move #%d (row %d, col %d)", entry.Index, move.Row, move.Col)
	}

	return move
}

func orderLabel(ascending bool) string {
	if ascending {
		return orderAscending
	}

	return orderDescending
}
