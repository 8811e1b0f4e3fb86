package sentinel

import "errors"

// Sentinel collaborator errors. Sink and alert adapters return these (optionally
// wrapped) so the flusher and dispatcher can classify failures exactly once.
var (
	ErrUnavailable = errors.New("unavailable")
	ErrTimeout     = errors.New("timeout")
	ErrClosed      = errors.New("closed")
)
