package domain

import "errors"

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrTokenStoreNotReady signals that the token store has not been loaded yet.
	// Callers should treat this as "service not ready", not as an auth failure.
	ErrTokenStoreNotReady = errors.New("token store not ready")
	// ErrInsufficientScope signals that the API key is valid but lacks the
	// scope required by the endpoint.
	ErrInsufficientScope = errors.New("insufficient scope")

	// ErrDeckNotFound signals that no deck exists under the given id.
	ErrDeckNotFound = errors.New("deck not found")
	// ErrSlideNotFound signals that a deck has no slide at the given position.
	ErrSlideNotFound = errors.New("slide not found")
	// ErrDeckStoreFull signals that the active-deck limit has been reached.
	ErrDeckStoreFull = errors.New("deck store full")
	// ErrDeckTooLarge signals that a deck would exceed the per-deck slide limit.
	ErrDeckTooLarge = errors.New("deck too large")
	// ErrInvalidSlidePositions signals that supplied slide positions are not
	// the contiguous sequence 1..N (or a mix of set and unset positions).
	ErrInvalidSlidePositions = errors.New("invalid slide positions")

	// ErrServiceNotFound signals that no managed service record matches the id.
	ErrServiceNotFound = errors.New("managed service not found")
	// ErrUnknownTool signals that the requested tool is not declared in config.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrToolAlreadyRunning signals that an instance of the tool is already active.
	ErrToolAlreadyRunning = errors.New("tool already running")
)
