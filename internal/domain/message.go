package domain

import (
	"errors"
	"time"
)

type MessageID string

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

var (
	ErrMessageEmpty       = errors.New("message text empty")
	ErrMessageType        = errors.New("unknown message type")
	ErrMessageNoRecipient = errors.New("message has no conversation")
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return true
	}
	return false
}

type Message struct {
	ID             MessageID      `json:"_id"`
	Sender         Friend         `json:"sender"`
	Text           string         `json:"text"`
	ConversationID ConversationID `json:"conversationId"`
	Type           MessageType    `json:"type"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Validate checks the fields a client has to supply.
func (m *Message) Validate() error {
	if m.ConversationID == "" {
		return ErrMessageNoRecipient
	}
	if m.Type == "" {
		m.Type = MessageText
	}
	if !m.Type.Valid() {
		return ErrMessageType
	}
	if m.Text == "" && m.ImageURL == "" {
		return ErrMessageEmpty
	}
	return nil
}
