package ws

import (
	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"main/pkg/exception"
)

const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
)

// ClientFrame is the client-to-server control frame.
type ClientFrame struct {
	Type       string `json:"type"`
	UserID     string `json:"userId"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
}

// DecodeClientFrame parses and validates an inbound control frame.
func DecodeClientFrame(raw []byte) (ClientFrame, error) {
	var frame ClientFrame
	if err := sonic.Unmarshal(raw, &frame); err != nil {
		return ClientFrame{}, errors.Wrap(exception.ErrWebSocketBadFrame, err.Error())
	}
	switch frame.Type {
	case frameSubscribe, frameUnsubscribe:
	default:
		return ClientFrame{}, errors.Wrap(exception.ErrWebSocketBadFrame, "unsupported type "+frame.Type)
	}
	if frame.EntityType == "" || frame.EntityID == "" {
		return ClientFrame{}, errors.Wrap(exception.ErrWebSocketBadFrame, "empty entity key")
	}
	return frame, nil
}
