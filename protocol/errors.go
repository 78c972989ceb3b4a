package protocol

import (
	"errors"
)

var (
	ErrInvalidClientRequestSize  = errors.New("invalid size of the client request message")
	ErrInvalidClientResponseSize = errors.New("invalid size of the client response message")
	ErrInvalidMarketUpdateSize   = errors.New("invalid size of the market update message")
	ErrInvalidFrameSize          = errors.New("invalid frame size")
)
