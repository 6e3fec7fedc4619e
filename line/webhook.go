package line

import (
	"time"
	"unicode/utf8"
)

// Event types.
const (
	EventTypeMessage  = "message"
	EventTypeFollow   = "follow"
	EventTypeUnfollow = "unfollow"
)

// Message types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeAudio = "audio"
	MessageTypeVideo = "video"
)

// WebhookRequest is the body of a webhook delivery.
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events" validate:"required,dive"`
}

// Event is one webhook event.
type Event struct {
	Type           string        `json:"type" validate:"required"`
	Mode           string        `json:"mode,omitempty"`
	Timestamp      int64         `json:"timestamp"`
	ReplyToken     string        `json:"replyToken,omitempty"`
	WebhookEventID string        `json:"webhookEventId,omitempty"`
	Source         *Source       `json:"source,omitempty"`
	Message        *EventMessage `json:"message,omitempty" validate:"required_if=Type message"`
}

// Source identifies who sent an event.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// ID returns the push destination for the source: the group or room when
// the event came from one, otherwise the user.
func (s *Source) ID() string {
	if s == nil {
		return ""
	}
	switch {
	case s.GroupID != "":
		return s.GroupID
	case s.RoomID != "":
		return s.RoomID
	}
	return s.UserID
}

// EventMessage is the message of a message event.
type EventMessage struct {
	ID   string `json:"id" validate:"required"`
	Type string `json:"type" validate:"required"`
	Text string `json:"text,omitempty"`
	// Duration is the length of audio or video in milliseconds.
	Duration int64 `json:"duration,omitempty"`
}

// IsVerification reports whether e is the console's webhook verification
// event, whose reply token repeats a single character.
func (e *Event) IsVerification() bool {
	if e.ReplyToken == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(e.ReplyToken)
	for _, r := range e.ReplyToken {
		if r != first {
			return false
		}
	}
	return true
}

// Variant is one of IncomingText, IncomingImage, IncomingAudio,
// IncomingVideo or UnsupportedMessage.
type Variant interface {
	messageID() string
}

// IncomingText is a text message.
type IncomingText struct {
	ID   string
	Text string
}

// IncomingImage is an image message.
type IncomingImage struct {
	ID string
}

// IncomingAudio is an audio message.
type IncomingAudio struct {
	ID       string
	Duration time.Duration
}

// IncomingVideo is a video message.
type IncomingVideo struct {
	ID       string
	Duration time.Duration
}

// UnsupportedMessage is any other message type (sticker, location, file...).
type UnsupportedMessage struct {
	ID   string
	Type string
}

func (m IncomingText) messageID() string       { return m.ID }
func (m IncomingImage) messageID() string      { return m.ID }
func (m IncomingAudio) messageID() string      { return m.ID }
func (m IncomingVideo) messageID() string      { return m.ID }
func (m UnsupportedMessage) messageID() string { return m.ID }

// Variant returns the typed form of m.
func (m *EventMessage) Variant() Variant {
	d := time.Duration(m.Duration) * time.Millisecond
	switch m.Type {
	case MessageTypeText:
		return IncomingText{ID: m.ID, Text: m.Text}
	case MessageTypeImage:
		return IncomingImage{ID: m.ID}
	case MessageTypeAudio:
		return IncomingAudio{ID: m.ID, Duration: d}
	case MessageTypeVideo:
		return IncomingVideo{ID: m.ID, Duration: d}
	}
	return UnsupportedMessage{ID: m.ID, Type: m.Type}
}
