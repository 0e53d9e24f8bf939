package room

import "errors"

// Boundary errors. Callers match them with errors.Is; the underlying store or
// provider error is logged where it happens and never wrapped into these.
var (
	ErrLocationOutOfBounds = errors.New("location is outside the supported area")
	ErrRoomCreationFailed  = errors.New("failed to create room")
	ErrRoomLookupFailed    = errors.New("failed to look up room")
)
