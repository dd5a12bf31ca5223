package tictactoe

// WinCombos lists every winning line. The order decides which line is reported
// when a board holds more than one.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeWin        Outcome = "win"
	OutcomeDraw       Outcome = "draw"
)

// Verdict describes the state of a board. Winner and Line are set only for OutcomeWin.
type Verdict struct {
	Outcome Outcome `json:"outcome"`
	Winner  Cell    `json:"winner,omitempty"`
	Line    []int   `json:"line,omitempty"`
}

func (that Verdict) IsFinished() bool {
	return that.Outcome != OutcomeInProgress
}

// InLine - reports whether the cell belongs to the winning line.
func (that Verdict) InLine(cell int) bool {
	for _, idx := range that.Line {
		if idx == cell {
			return true
		}
	}

	return false
}

// Evaluate - checks the board for a winner, a draw or a game still in progress.
// It accepts any board, reachable or not.
func Evaluate(board Board) Verdict {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return Verdict{
				Outcome: OutcomeWin,
				Winner:  a,
				Line:    []int{combo[0], combo[1], combo[2]},
			}
		}
	}

	// the game will continue until all the squares are full
	if board.IsFull() {
		return Verdict{Outcome: OutcomeDraw}
	}

	return Verdict{Outcome: OutcomeInProgress}
}
