package recipe

import "errors"

var (
	ErrRecipe   = errors.New("invalid recipe")
	ErrChecksum = errors.New("recipe checksum failed")
)
