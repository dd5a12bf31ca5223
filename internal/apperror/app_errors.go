package apperror

import "errors"

var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrGameFinished    = errors.New("game is already finished")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrInvalidCell     = errors.New("invalid cell index")
	ErrInvalidIndex    = errors.New("invalid history index")
	ErrCorruptHistory  = errors.New("corrupt game history")
	ErrSessionNotFound = errors.New("session not found")
)
