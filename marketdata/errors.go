package marketdata

import (
	"errors"
)

var (
	ErrInvalidFrame         = errors.New("invalid market data frame")
	ErrSequenceGap          = errors.New("market update sequence gap")
	ErrInconsistentUpdate   = errors.New("market update does not match the known orders")
	ErrUnknownInstrument    = errors.New("unknown instrument")
	ErrAlreadyRunning       = errors.New("already running")
	ErrInvalidSnapshotSetup = errors.New("invalid snapshot synthesizer setup")
)
