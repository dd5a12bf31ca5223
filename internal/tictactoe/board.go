package tictactoe

import "fmt"

const (
	BoardWidth = 3
	BoardSize  = BoardWidth * BoardWidth
)

// Cell is the content of one square.
type Cell uint8

const (
	EmptyCell Cell = iota
	PlayerX
	PlayerO
)

func (that Cell) String() string {
	switch that {
	case PlayerX:
		return "X"
	case PlayerO:
		return "O"
	default:
		return ""
	}
}

func (that Cell) MarshalText() ([]byte, error) {
	if that > PlayerO {
		return nil, fmt.Errorf("unknown cell value %d", that)
	}

	return []byte(that.String()), nil
}

func (that *Cell) UnmarshalText(text []byte) error {
	switch string(text) {
	case "":
		*that = EmptyCell
	case "X":
		*that = PlayerX
	case "O":
		*that = PlayerO
	default:
		return fmt.Errorf("unknown cell mark %q", text)
	}

	return nil
}

// Board holds the nine cells in row-major order.
type Board [BoardSize]Cell

// IsFull - reports whether no empty cell is left.
func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// Move is the cell index played to reach a history entry.
type Move int

// NoMove marks the initial empty board.
const NoMove Move = -1

// Position - returns the zero-based row and column of the move.
func (that Move) Position() (int, int, bool) {
	if !IsValidCell(int(that)) {
		return 0, 0, false
	}

	return int(that) / BoardWidth, int(that) % BoardWidth, true
}

func IsValidCell(cell int) bool {
	return cell >= 0 && cell < BoardSize
}

// HistoryEntry is one snapshot of the game together with the move that produced it.
type HistoryEntry struct {
	Board Board `json:"board"`
	Move  Move  `json:"move"`
}
