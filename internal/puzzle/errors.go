package puzzle

import "errors"

var (
	// ErrInvalidIndex is returned when a grid index falls outside 0..GridSize-1.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrConfiguration means the category pool cannot produce a valid session,
	// e.g. a tag has no categories or a category does not hold four words.
	ErrConfiguration = errors.New("invalid category configuration")
)
