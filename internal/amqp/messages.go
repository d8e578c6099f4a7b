package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"keuangan/internal/core"
)

// ReplyMessage carries the reply text for one inbound event back to the chat
// gateway.
type ReplyMessage struct {
	SenderID      string    `json:"sender_id"`
	Text          string    `json:"text"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewReplyMessage(senderID, text, correlationID string, now time.Time) ReplyMessage {
	return ReplyMessage{
		SenderID:      senderID,
		Text:          text,
		CorrelationID: correlationID,
		Timestamp:     now,
	}
}

// ToJSON converts the message to JSON bytes
func (m ReplyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReplyMessageFromJSON decodes a published reply.
func ReplyMessageFromJSON(data []byte) (ReplyMessage, error) {
	var msg ReplyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ReplyMessage{}, err
	}
	return msg, nil
}

// InboundEventFromJSON decodes a queued chat event. Media arrives base64
// encoded in media_base64.
func InboundEventFromJSON(data []byte) (core.InboundEvent, error) {
	var ev core.InboundEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.InboundEvent{}, err
	}
	if ev.SenderID == "" {
		return core.InboundEvent{}, fmt.Errorf("%w: missing sender_id", core.ErrInvalidArgument)
	}
	if len(ev.Media) > 0 {
		ev.HasMedia = true
	}
	return ev, nil
}
