package recipe

import "errors"

var (
	// ErrRecipeNotFound is returned when a lane has no active recipe.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrInvalidPayload is returned when a payload cannot be hashed.
	ErrInvalidPayload = errors.New("invalid recipe payload")
)
