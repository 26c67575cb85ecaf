package exception

import "errors"

// WS errors
var (
	ErrWebSocketConnectionClose = errors.New("websocket: connection closed")
	ErrWebSocketQueueFull       = errors.New("websocket: outbound queue full")
	ErrWebSocketBadFrame        = errors.New("websocket: malformed client frame")
)
