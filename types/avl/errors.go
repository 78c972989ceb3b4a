package avl

import (
	"errors"
)

var (
	ErrorTreeFull          = errors.New("tree is full")
	ErrorTreeNodeDuplicate = errors.New("tree node is duplicated")
	ErrorTreeNodeNotFound  = errors.New("tree node is not found")
)
