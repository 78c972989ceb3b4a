package list

import (
	"errors"
)

var (
	ErrorArenaFull                 = errors.New("list arena is full")
	ErrorListElementIsNil          = errors.New("list element is nil")
	ErrorListElementIsNotInTheList = errors.New("list element is not in the list")
)
