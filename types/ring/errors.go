package ring

import (
	"errors"
)

var (
	ErrInvalidCapacity = errors.New("queue capacity must be a power of two not less than 2")
	ErrQueueFull       = errors.New("queue is full")
)
