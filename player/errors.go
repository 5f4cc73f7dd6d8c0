package player

import "errors"

var (
	// ErrNotReady indicates the next presentation frame has been requested
	// from the engine but has not completed yet. The caller should retry on
	// its next display tick.
	ErrNotReady = errors.New("player: frame not ready")

	// ErrFinished indicates every frame has been presented and looping is
	// disabled.
	ErrFinished = errors.New("player: playback finished")

	// ErrClosed indicates the player has been closed.
	ErrClosed = errors.New("player: closed")
)
