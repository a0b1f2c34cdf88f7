// Package notifications delivers board change events to websocket
// subscribers, fanning out across instances through Redis.
package notifications

import (
	"strings"

	"github.com/goccy/go-json"
)

// Event types carried on the wire.
const (
	EventPinCreated   = "pin_created"
	EventPinDeleted   = "pin_deleted"
	EventReplyCreated = "reply_created"
	EventSubscribed   = "subscribed"
	EventDropped      = "messages_dropped"
)

// TopicPins is the board-wide topic every viewer holds for the session.
const TopicPins = "pins"

const repliesPrefix = "replies:"

// RepliesTopic is the detail topic for one pin's thread.
func RepliesTopic(pinID string) string {
	return repliesPrefix + pinID
}

// PinIDFromTopic returns the pin id of a replies topic.
func PinIDFromTopic(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, repliesPrefix)
	return id, ok && id != ""
}

// Event is the envelope sent to subscribers.
type Event struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event for topic.
func NewEvent(eventType, topic string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Topic: topic, Payload: raw}, nil
}

// Encode marshals the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
